package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghodss/yaml"
	"github.com/relloyd/starpipe/aws/s3"
	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms"
)

// Seams used by tests to avoid real databases and buckets.
var (
	openDbConnection                  = rdbms.OpenDbConnection
	newS3Client      s3.ClientFactory = s3.NewBasicClient
	loadConfig                        = config.LoadDefault
)

// Output formats accepted by the actions that print structured data.
const (
	OutputSql  = "sql"
	OutputText = "text"
	OutputYaml = "yaml"
	OutputJson = "json"
)

func newLogger(logLevel string, stackDumpOnPanic bool) *logger.LoggerImpl {
	return logger.NewLogger(constants.ServiceName, logLevel, stackDumpOnPanic)
}

func getPrintLogFunc(log logger.Logger, useStdOut bool) func(msg string) {
	return func(msg string) {
		if useStdOut {
			fmt.Println(msg)
		} else {
			log.Info(msg)
		}
	}
}

// contextWithInterrupt returns a context that is cancelled on SIGINT or SIGTERM.
// Call the returned CancelFunc to release the signal handler.
func contextWithInterrupt(log logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancelFn := context.WithCancel(context.Background())
	chanQuit := make(chan os.Signal, 2)
	signal.Notify(chanQuit, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(chanQuit)
		select {
		case <-chanQuit: // if we were interrupted...
			fmt.Println()
			log.Warn("User abort. Cancelling the running statement...")
			cancelFn()
		case <-ctx.Done():
		}
	}()
	return ctx, cancelFn
}

// writeStructured marshals i as YAML or indented JSON and writes it to w.
func writeStructured(w io.Writer, i interface{}, format string) error {
	var err error
	var data []byte
	switch format {
	case OutputYaml:
		data, err = yaml.Marshal(i)
	case OutputJson:
		data, err = json.MarshalIndent(i, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("unable to marshal output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
