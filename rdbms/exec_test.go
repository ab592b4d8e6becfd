package rdbms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms/shared"
)

func TestExecInTxCommits(t *testing.T) {
	log := logger.NewLogger("starpipe", "error", false)
	db, ch := shared.NewMockConnectionWithMockTx(log, constants.ConnectionTypeRedshift)
	db.ExecFn = func(query string) (shared.Result, error) {
		return shared.MockResult{Rows: 42}, nil
	}
	n, err := ExecInTx(context.Background(), log, db, "insert into users select 1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Fatalf("expected 42 rows affected; got %v", n)
	}
	if got := <-ch; got != "insert into users select 1" {
		t.Fatalf("unexpected SQL %q", got)
	}
	expected := []string{"BEGIN", "EXEC", "COMMIT"}
	got := db.Events()
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected events %v; got %v", expected, got)
	}
}

func TestExecInTxRollsBackOnError(t *testing.T) {
	log := logger.NewLogger("starpipe", "error", false)
	db, _ := shared.NewMockConnectionWithMockTx(log, constants.ConnectionTypeRedshift)
	db.ExecFn = func(query string) (shared.Result, error) {
		return nil, errors.New("boom")
	}
	if _, err := ExecInTx(context.Background(), log, db, "copy staging_songs"); err == nil {
		t.Fatal("expected error")
	}
	got := strings.Join(db.Events(), ",")
	if got != "BEGIN,EXEC,ROLLBACK" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestExecInTxCancelled(t *testing.T) {
	log := logger.NewLogger("starpipe", "error", false)
	db, _ := shared.NewMockConnectionWithMockTx(log, constants.ConnectionTypeRedshift)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExecInTx(ctx, log, db, "select 1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled; got %v", err)
	}
	if len(db.Events()) != 0 {
		t.Fatalf("expected no database activity; got %v", db.Events())
	}
}

func TestDescribeError(t *testing.T) {
	err := &pq.Error{Code: "42P01", Message: `relation "staging_events" does not exist`}
	got := DescribeError(err)
	if !strings.Contains(got, "42P01") || !strings.Contains(got, "undefined_table") {
		t.Fatalf("expected SQLSTATE details in %q", got)
	}
	if DescribeError(errors.New("plain")) != "plain" {
		t.Fatal("expected plain errors to be unchanged")
	}
}
