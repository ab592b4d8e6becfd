package actions

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/pipeline"
	"github.com/relloyd/starpipe/warehouse"
)

type SqlOutputConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	Plan             string `errorTxt:"plan" mandatory:"yes"`
	Steps            []string
	Output           string `errorTxt:"output format" mandatory:"yes"` // sql, yaml or json
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
}

// stepDefinition is the structured form of a step printed by the sql action.
type stepDefinition struct {
	Name       string        `json:"name"`
	Kind       pipeline.Kind `json:"kind"`
	Phase      string        `json:"phase"`
	Sql        string        `json:"sql"`
	Definition pipeline.Step `json:"definition"`
}

// RunSqlOutput prints the statements of a plan without connecting to the warehouse.
func RunSqlOutput(cfg *SqlOutputConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil pointer to sql output config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, cfg.StackDumpOnPanic)
	conf, err := loadConfig(cfg.ConfigFile)
	if err != nil {
		return err
	}
	plan, err := warehouse.NewSelectedPlan(cfg.Plan, conf, cfg.Steps)
	if err != nil {
		return err
	}
	return writePlan(log, os.Stdout, plan, cfg.Output)
}

// writePlan renders plan to w as a SQL script, or as a YAML or JSON list of steps.
func writePlan(log logger.Logger, w io.Writer, plan *pipeline.Plan, format string) error {
	if format == OutputSql {
		r := pipeline.NewRunner(pipeline.RunnerConfig{Log: log, DryRun: true, Out: w}, plan)
		return r.Run(context.Background())
	}
	steps := plan.Steps()
	defs := make([]stepDefinition, 0, len(steps))
	for _, s := range steps {
		defs = append(defs, stepDefinition{
			Name:       s.GetName(),
			Kind:       s.GetKind(),
			Phase:      s.GetPhase(),
			Sql:        s.GetSql(),
			Definition: s,
		})
	}
	return writeStructured(w, defs, format)
}
