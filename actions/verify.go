package actions

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms/shared"
	"github.com/relloyd/starpipe/warehouse"
)

type VerifyConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	Output           string `errorTxt:"output format" mandatory:"yes"` // text, yaml or json
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
}

// RunVerify counts rows in the target tables and compares them with the distinct keys in staging.
// A mismatch is returned as an error after every result has been printed.
func RunVerify(cfg *VerifyConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil pointer to verify config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, cfg.StackDumpOnPanic)
	conf, err := loadConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}
	db, err := openDbConnection(log, conf.Connection())
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancelFn := contextWithInterrupt(log)
	defer cancelFn()
	return verify(ctx, log, db, os.Stdout, cfg.Output)
}

func verify(ctx context.Context, log logger.Logger, db shared.Connector, w io.Writer, format string) error {
	results, errVerify := warehouse.Verify(ctx, log, db, warehouse.Checks)
	if _, ok := errVerify.(warehouse.VerificationError); errVerify != nil && !ok { // if the checks could not complete...
		return errVerify
	}
	var err error
	if format == OutputText {
		for _, r := range results {
			if _, err = fmt.Fprintln(w, r); err != nil {
				return err
			}
		}
	} else {
		err = writeStructured(w, results, format)
	}
	if err != nil {
		return err
	}
	return errVerify
}
