// Package sqlxrepos implements the write-side repositories on top of sqlx.
//
// Queries use "?" placeholders and are rebound for the driver in use.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
)

type base struct {
	db       *sqlx.DB
	rowLocks bool
}

// ext returns the transaction handed down by a service, or the pool.
// Transactions must come from NewTxRunner.
func (b base) ext(exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) == 0 || exec[0] == nil {
		return b.db
	}
	e, ok := exec[0].(sqlx.ExtContext)
	if !ok {
		panic(fmt.Sprintf("sqlxrepos: unsupported executor %T", exec[0]))
	}
	return e
}

// lockClause locks the selected row of table when running inside a transaction.
func (b base) lockClause(table string, exec []core.DBExecutor) string {
	if !b.rowLocks || len(exec) == 0 || exec[0] == nil {
		return ""
	}
	return " FOR UPDATE OF " + table
}

func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

type txRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) core.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
