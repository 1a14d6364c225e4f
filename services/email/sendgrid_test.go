package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, nil).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Curator", Address: "curator@school.kz"}},
		Cc:          []mail.Address{{Address: "head@school.kz"}},
		Subject:     "10A: 2 students at critical risk",
		TextContent: "text",
	})

	assert.Equal(t, conf.DefaultFromEmail.Address, m.From.Address)
	if assert.Len(t, m.Personalizations, 1) {
		p := m.Personalizations[0]
		assert.Equal(t, "["+conf.AppName+"] 10A: 2 students at critical risk", p.Subject)
		assert.Equal(t, "curator@school.kz", p.To[0].Address)
		assert.Equal(t, "head@school.kz", p.CC[0].Address)
	}
	if assert.Len(t, m.Content, 1) {
		assert.Equal(t, "text/plain", m.Content[0].Type)
	}
}
