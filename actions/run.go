package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relloyd/starpipe/aws/s3"
	"github.com/relloyd/starpipe/config"
	"github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/pipeline"
	"github.com/relloyd/starpipe/rdbms/shared"
	"github.com/relloyd/starpipe/warehouse"
)

// RunRequest names a plan and the optional steps or phases to run from it.
// It is accepted as JSON by the web server and the Lambda handler.
type RunRequest struct {
	Plan      string   `json:"plan"`
	Steps     []string `json:"steps,omitempty"`
	DryRun    bool     `json:"dryRun,omitempty"`
	Preflight bool     `json:"preflight,omitempty"`
}

// PipelineConfig is supplied by the CLI to run a plan once.
type PipelineConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	Request          RunRequest
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
	PrintSummary     bool // print the run summary to STDOUT instead of the log
}

// pipelineRun is a prepared Runner and the connection it owns.
type pipelineRun struct {
	runner *pipeline.Runner
	db     shared.Connector
}

// preparePipeline builds the requested plan and opens the warehouse connection.
// Configuration errors and preflight failures are returned before any connection is made.
func preparePipeline(log logger.Logger, conf config.Config, req RunRequest, out io.Writer) (*pipelineRun, error) {
	if req.Plan == "" {
		req.Plan = warehouse.PlanRun
	}
	plan, err := warehouse.NewSelectedPlan(req.Plan, conf, req.Steps)
	if err != nil {
		return nil, err
	}
	if req.Preflight {
		if err = s3.Preflight(log, conf.Preflight(), newS3Client); err != nil {
			return nil, err
		}
	}
	p := &pipelineRun{}
	if !req.DryRun {
		p.db, err = openDbConnection(log, conf.Connection())
		if err != nil {
			return nil, err
		}
	}
	p.runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Log:    log,
		Db:     p.db,
		DryRun: req.DryRun,
		Out:    out,
	}, plan)
	return p, nil
}

// run executes the plan and closes the connection.
func (p *pipelineRun) run(ctx context.Context) error {
	if p.db != nil {
		defer p.db.Close()
	}
	return p.runner.Run(ctx)
}

// RunPipeline loads the configuration, runs the requested plan and reports a summary.
// SIGINT and SIGTERM cancel the running statement and no further steps are attempted.
func RunPipeline(cfg *PipelineConfig) error {
	if err := validatePipelineConfig(cfg); err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, cfg.StackDumpOnPanic)
	conf, err := loadConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}
	log.Debug("Loaded config: ", conf)
	p, err := preparePipeline(log, conf, cfg.Request, os.Stdout)
	if err != nil {
		return err
	}
	ctx, cancelFn := contextWithInterrupt(log)
	defer cancelFn()
	err = p.run(ctx)
	if !cfg.Request.DryRun {
		printRunSummary(getPrintLogFunc(log, cfg.PrintSummary), p.runner.Status())
	}
	return err
}

func validatePipelineConfig(cfg *PipelineConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil pointer to pipeline config supplied")
	}
	return helper.ValidateStructIsPopulated(cfg)
}

// printRunSummary reports one line for the run and one per step.
func printRunSummary(printLogFn func(msg string), st pipeline.RunStatus) {
	printLogFn(fmt.Sprintf("Run %v %v, started %v", st.RunId, st.Status, st.StartTime.Format(constants.TimeFormatYearSeconds)))
	for _, s := range st.Steps {
		line := fmt.Sprintf("  %-24v %-10v %v rows", s.Name, s.Status, s.RowsAffected)
		if s.Status == pipeline.StatusComplete {
			line = fmt.Sprintf("%v in %v", line, s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
		}
		if s.Error != "" {
			line = fmt.Sprintf("%v: %v", line, s.Error)
		}
		printLogFn(line)
	}
}
