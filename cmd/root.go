package cmd

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/relloyd/starpipe/actions"
	"github.com/relloyd/starpipe/warehouse"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2020-01-02T03:04+0500"
	osArch           = "linux"
	stackDumpOnPanic bool
	configFile       string
)

var rootCmd = &cobra.Command{
	Use:   "starpipe",
	Short: "Load song and event logs from S3 into a Redshift star schema",
	Long: `
Starpipe loads JSON song metadata and user activity logs from S3 into Redshift
staging tables with COPY, then populates a star schema (songplays, users, songs,
artists and time) with INSERT ... SELECT statements.

Run without a command to load and transform using ./dwh.cfg. Each step commits on
its own and the first failure stops the run.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootRunCfg.Request.Plan = warehouse.PlanRun
		return runPipeline(&rootRunCfg)
	},
}

var rootRunCfg = actions.PipelineConfig{}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)
	// Global flags.
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile(), "Path to the INI config file")
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", defaultStackDump(), "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
	addPipelineFlags(rootCmd, &rootRunCfg, true)
}

// runPipeline copies the global flags into cfg and runs its plan.
func runPipeline(cfg *actions.PipelineConfig) error {
	cfg.ConfigFile = configFile
	cfg.StackDumpOnPanic = stackDumpOnPanic
	cfg.PrintSummary = !twelveFactorMode
	return actions.RunPipeline(cfg)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			h, err := newLambdaHandler()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lambda.Start(h)
		} else {
			if err := execute12FactorMode(twelveFactorActions); err != nil {
				// execute12FactorMode logs the error.
				os.Exit(1)
			}
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}
