// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/user"
	logsvc "github.com/Bebdyshev/usp-backend/services/logger"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NewLogger logs through the test with reporting disabled.
func NewLogger(t *testing.T, conf *core.Config) *logsvc.RollbarLogger {
	l := logsvc.NewRollbarLogger(zaptest.NewLogger(t).Sugar(), conf)
	l.Enable(false)
	return l
}

// Workbook writes rows to the first sheet of a new .xlsx workbook.
func Workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Workbook(): %v", err)
		}
		row := row
		if err = f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("Workbook(): %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Workbook(): %v", err)
	}
	return buf
}
