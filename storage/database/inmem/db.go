// Package inmemdb keeps every repository in memory. Used by tests and local runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
)

type (
	DB struct {
		sync.RWMutex
		txMu sync.Mutex
		data tables
	}

	tables struct {
		users       map[string]user.User
		assignments []user.GradeAssignment
		grades      map[int]score.Grade
		subjects    map[int]score.Subject
		students    map[int]score.Student
		records     map[int]score.Record
		weightSets  map[int]settings.WeightSet
		aliases     map[gradebook.Field][]string
		pk          int
	}
)

func Open() *DB {
	return &DB{data: tables{
		users:      make(map[string]user.User),
		grades:     make(map[int]score.Grade),
		subjects:   make(map[int]score.Subject),
		students:   make(map[int]score.Student),
		records:    make(map[int]score.Record),
		weightSets: make(map[int]settings.WeightSet),
		aliases:    make(map[gradebook.Field][]string),
	}}
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int {
	db.data.pk++
	return db.data.pk
}

func (t tables) clone() tables {
	c := tables{
		users:       make(map[string]user.User, len(t.users)),
		assignments: append([]user.GradeAssignment(nil), t.assignments...),
		grades:      make(map[int]score.Grade, len(t.grades)),
		subjects:    make(map[int]score.Subject, len(t.subjects)),
		students:    make(map[int]score.Student, len(t.students)),
		records:     make(map[int]score.Record, len(t.records)),
		weightSets:  make(map[int]settings.WeightSet, len(t.weightSets)),
		aliases:     make(map[gradebook.Field][]string, len(t.aliases)),
		pk:          t.pk,
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.grades {
		c.grades[k] = v
	}
	for k, v := range t.subjects {
		c.subjects[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.records {
		c.records[k] = v
	}
	for k, v := range t.weightSets {
		c.weightSets[k] = v
	}
	for k, v := range t.aliases {
		c.aliases[k] = v
	}
	return c
}

type txRunner struct {
	db *DB
}

// NewTxRunner returns a core.TxRunner restoring the tables as they were when fn fails.
// Transactions are serialized.
func NewTxRunner(db *DB) core.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()

	r.db.RLock()
	snapshot := r.db.data.clone()
	r.db.RUnlock()

	err := fn(nil)
	if err == nil {
		err = ctx.Err() // a cancelled context does not commit
	}
	if err != nil {
		r.db.Lock()
		r.db.data = snapshot
		r.db.Unlock()
	}
	return err
}
