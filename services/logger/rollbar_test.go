package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/user"
)

func TestRollbarLogger_localFields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs).Sugar(), core.NewTestConfig())
	logger.Enable(false)

	usr := user.User{ID: "9c5b94b1-35ad-49bb-b118-8e8fc24abf80", Email: "curator@school.kz"}
	logger.Warn("row skipped", errors.New("bad cell"), map[string]interface{}{"row": 4, "import_id": "x"}, usr)
	logger.Info("done")

	entries := logs.AllUntimed()
	if !assert.Len(t, entries, 2) {
		return
	}
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "row skipped", entries[0].Message)
	assert.Equal(t, map[string]interface{}{
		"error":      "bad cell",
		"import_id":  "x",
		"row":        int64(4),
		"user_id":    usr.ID,
		"user_email": usr.Email,
	}, entries[0].ContextMap())
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(zap.NewNop().Sugar(), core.NewTestConfig())
	logger.Enable(false)

	err := errors.New("boom")
	extra := map[string]interface{}{"grade_id": 3}
	got := logger.prepare("msg", []interface{}{err, user.User{ID: "1"}, extra, user.User{ID: "2"}})
	assert.Equal(t, []interface{}{"msg", err, extra}, got)
}
