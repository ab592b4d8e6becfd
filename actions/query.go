package actions

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/rdbms"
)

type QueryConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	Query            string `errorTxt:"SQL query" mandatory:"yes"`
	PrintHeader      bool
	DryRun           bool
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
}

// sqlHandler writes the query results to w as CSV.
type sqlHandler struct {
	printHeader bool
	w           *csv.Writer
}

func newSqlHandler(w io.Writer, printHeader bool) *sqlHandler {
	return &sqlHandler{printHeader: printHeader, w: csv.NewWriter(w)}
}

func (s *sqlHandler) HandleHeader(i []interface{}) error {
	if s.printHeader {
		if err := s.write(i); err != nil {
			return fmt.Errorf("error outputting SQL header: %v", err)
		}
	}
	return nil
}

func (s *sqlHandler) HandleRow(i []interface{}) error {
	if err := s.write(i); err != nil {
		return fmt.Errorf("error outputting SQL row: %v", err)
	}
	return nil
}

func (s *sqlHandler) write(i []interface{}) error {
	if err := s.w.Write(helper.InterfaceToString(i)); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// RunQuery runs a read query against the warehouse and prints the rows as CSV.
func RunQuery(cfg *QueryConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil pointer to query config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.DryRun {
		fmt.Println(cfg.Query)
		return nil
	}
	log := newLogger(cfg.LogLevel, cfg.StackDumpOnPanic)
	conf, err := loadConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}
	// Connect to database.
	db, err := openDbConnection(log, conf.Connection())
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancelFn := contextWithInterrupt(log)
	defer cancelFn()
	err = rdbms.SqlQuery(ctx, log, db, cfg.Query, newSqlHandler(os.Stdout, cfg.PrintHeader))
	if err != nil {
		log.Error(rdbms.DescribeError(err))
	}
	return err
}
