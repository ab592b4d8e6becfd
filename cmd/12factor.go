package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/starpipe/actions"
	c "github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/helper"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/warehouse"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by the actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == "lambda"
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarConfig           = c.EnvVarPrefix + "_" + "CONFIG"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode is "lambda"
	twelveFactorVars = []string{
		envVarCommand,
		envVarConfig,
		envVarLogLevel,
		envVarStackDump,
		helper.FlagNameToEnvVar("steps"),
		helper.FlagNameToEnvVar("dry-run"),
		helper.FlagNameToEnvVar("preflight"),
		helper.GetConfigKeyEnvVarName(c.ConfigSectionWarehouse, "DB_ENDPOINT"),
		helper.GetConfigKeyEnvVarName(c.ConfigSectionWarehouse, "DWH_DB_PASSWORD"),
	}
	twelveFactorVarsSensitive = map[string]struct{}{ // used to flag some of the above variables as being sensitive.
		helper.GetConfigKeyEnvVarName(c.ConfigSectionWarehouse, "DWH_DB_PASSWORD"): {},
	}
)

type twelveFactorAction struct {
	setupFunc  func()
	runnerFunc func() error
}

// twelveFactorActions maps the value of envVarCommand to the action to run.
// The plan commands reuse the config populated by their cobra flags from the environment.
var twelveFactorActions = map[string]twelveFactorAction{
	"verify": {
		setupFunc:  func() { verifyCfg.ConfigFile, verifyCfg.StackDumpOnPanic = configFile, stackDumpOnPanic },
		runnerFunc: func() error { return actions.RunVerify(&verifyCfg) },
	},
}

func init() {
	for _, pc := range pipelineCommands {
		plan := pc.plan
		twelveFactorActions[plan] = twelveFactorAction{
			setupFunc:  func() {},
			runnerFunc: func() error { return runPipeline(pipelineCfgs[plan]) },
		}
	}
}

// defaultConfigFile returns the config file named in the environment in twelveFactorMode.
func defaultConfigFile() string {
	if twelveFactorMode {
		return helper.ReadValueFromEnvWithDefault(envVarConfig, c.DefaultConfigFileName)
	}
	return c.DefaultConfigFileName
}

// defaultStackDump returns true if stack dumps are requested via the environment in twelveFactorMode.
func defaultStackDump() bool {
	return twelveFactorMode && helper.GetTrueFalseStringAsBool(os.Getenv(envVarStackDump))
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn") // fetch logLevel from env as this is not a persistent flag, given that we wanted different logging defaults per cobra action.
	log := logger.NewLogger(c.ServiceName, logLevel, stackDumpOnPanic)
	log.Info("Starpipe is running in 12 Factor mode...")
	for _, k := range twelveFactorVars { // for each env variable that we read...
		if _, sensitive := twelveFactorVarsSensitive[k]; sensitive {
			log.Debug(k, "=", "<obfuscated>")
		} else {
			log.Debug(k, "=", os.Getenv(k))
		}
	}
	command := helper.ReadValueFromEnvWithDefault(envVarCommand, warehouse.PlanRun)
	a, ok := acts[command]
	if !ok {
		err = fmt.Errorf("invalid command %q supplied in %v", command, envVarCommand)
		log.Error(err.Error())
		return
	}
	a.setupFunc()
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}

// newLambdaHandler returns the handler registered with the Lambda runtime.
// Each invocation event is a JSON RunRequest such as {"plan": "transform", "steps": ["users"]}.
func newLambdaHandler() (func(ctx context.Context, req actions.RunRequest) (actions.LambdaResponse, error), error) {
	return actions.NewLambdaHandler(&actions.LambdaConfig{
		ConfigFile:       configFile,
		LogLevel:         helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info"),
		StackDumpOnPanic: stackDumpOnPanic,
	})
}
