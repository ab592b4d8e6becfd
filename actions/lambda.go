package actions

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/pipeline"
)

// LambdaConfig is used to build the handler registered with the Lambda runtime.
type LambdaConfig struct {
	ConfigFile       string `errorTxt:"config file" mandatory:"yes"`
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
}

// LambdaResponse is returned to the Lambda runtime once a run ends.
type LambdaResponse struct {
	RunId string             `json:"runId"`
	Run   pipeline.RunStatus `json:"run"`
}

// NewLambdaHandler returns a handler that runs the plan named in each event.
// The invocation context bounds the run so a Lambda timeout cancels the running statement.
func NewLambdaHandler(cfg *LambdaConfig) (func(ctx context.Context, req RunRequest) (LambdaResponse, error), error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil pointer to lambda config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel, cfg.StackDumpOnPanic)
	return func(ctx context.Context, req RunRequest) (LambdaResponse, error) {
		conf, err := loadConfig(cfg.ConfigFile)
		if err != nil {
			log.Error(err)
			return LambdaResponse{}, err
		}
		p, err := preparePipeline(log, conf, req, ioutil.Discard)
		if err != nil {
			log.Error(err)
			return LambdaResponse{}, err
		}
		err = p.run(ctx)
		resp := LambdaResponse{RunId: p.runner.RunId(), Run: p.runner.Status()}
		if err != nil {
			log.Error(err)
		}
		return resp, err
	}, nil
}
