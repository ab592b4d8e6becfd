package rdbms

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms/shared"
)

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
// The pool is capped at one connection so every statement runs on the same session.
func OpenDbConnection(log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " to host ", c.Host) // don't log password details!
	switch c.Type {
	case constants.ConnectionTypeRedshift, constants.ConnectionTypePostgres:
		db, err = newConnectionWithDsn(log, c)
	default:
		err = fmt.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

func newConnectionWithDsn(log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
	log.Info("Opening database connection: ", d)
	u, err := d.Parse()
	if err != nil { // if the DSN could not be parsed...
		return nil, err
	}
	// Create the new Connector.
	conn := &shared.HpConnection{
		DbType: d.Type,
	}
	// Open the connection.
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	conn.DbSql.SetMaxOpenConns(1)
	conn.DbSql.SetMaxIdleConns(1)
	// Test the connection.
	err = conn.DbSql.Ping()
	if err != nil {
		_ = conn.DbSql.Close()
		return nil, fmt.Errorf("error connecting to %v: %w", d, err)
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
