package rdbms

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms/shared"
)

// ExecInTx runs sqltext in its own transaction and commits it.
// The transaction is rolled back if the statement fails.
// It returns the rows affected or -1 if the driver could not report them.
func ExecInTx(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string) (int64, error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	log.Trace("executing SQL: ", sqltext)
	res, err := tx.ExecContext(ctx, sqltext)
	if err != nil {
		if errRb := tx.Rollback(); errRb != nil {
			log.Warn("error during rollback: ", errRb)
		}
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error during commit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// DescribeError adds the SQLSTATE details of a Postgres error to its text.
func DescribeError(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := fmt.Sprintf("%v (SQLSTATE %v %v)", err, pqErr.Code, pqErr.Code.Name())
		if pqErr.Detail != "" {
			msg = fmt.Sprintf("%v; detail: %v", msg, pqErr.Detail)
		}
		return msg
	}
	return err.Error()
}
