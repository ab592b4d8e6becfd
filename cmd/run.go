package cmd

import (
	"github.com/relloyd/starpipe/actions"
	"github.com/relloyd/starpipe/warehouse"
	"github.com/spf13/cobra"
)

// pipelineCommand describes a subcommand that runs one of the warehouse plans.
type pipelineCommand struct {
	plan      string
	short     string
	long      string
	preflight bool // true if the plan reads from S3
}

var pipelineCommands = []pipelineCommand{
	{plan: warehouse.PlanRun, preflight: true,
		short: "Load the staging tables from S3 and populate the star schema",
		long: `Load the staging tables from S3 and populate the star schema.
This is the same as running starpipe without a command.`},
	{plan: warehouse.PlanLoad, preflight: true,
		short: "COPY song and event logs from S3 into the staging tables",
		long: `COPY song and event logs from S3 into the staging tables.
The staging tables are not truncated first so rerunning appends the same files again.`},
	{plan: warehouse.PlanTransform,
		short: "Populate the star schema from the staging tables",
		long: `Populate songplays, users, songs, artists and time from the staging tables.
Every table is appended to, dimensions included, so running transform twice
duplicates rows and verify then reports a mismatch. Run "starpipe reset" then
"starpipe run" to rebuild from scratch.`},
	{plan: warehouse.PlanCreate,
		short: "Create the staging and star schema tables if they do not exist"},
	{plan: warehouse.PlanDrop,
		short: "Drop the staging and star schema tables"},
	{plan: warehouse.PlanReset,
		short: "Drop and recreate the staging and star schema tables"},
}

// pipelineCfgs holds the flag values of each pipeline command keyed by plan name.
var pipelineCfgs = make(map[string]*actions.PipelineConfig)

func newPipelineCmd(pc pipelineCommand) *cobra.Command {
	cfg := &actions.PipelineConfig{Request: actions.RunRequest{Plan: pc.plan}}
	pipelineCfgs[pc.plan] = cfg
	long := pc.long
	if long == "" {
		long = pc.short
	}
	c := &cobra.Command{
		Use:          pc.plan,
		Short:        pc.short,
		Long:         long,
		Args:         cobra.NoArgs,
		SilenceUsage: true, // avoid dumping command help when a SQL error occurs.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cfg)
		},
	}
	addPipelineFlags(c, cfg, pc.preflight)
	return c
}

// addPipelineFlags registers the flags shared by every command that runs a plan.
func addPipelineFlags(c *cobra.Command, cfg *actions.PipelineConfig, preflight bool) {
	c.Flags().SortFlags = false
	switches.addFlag(c, &cfg.LogLevel, "log-level", "warn", false, "")
	switches.addFlag(c, &cfg.Request.DryRun, "dry-run", "false", false, "")
	switches.addFlag(c, &cfg.Request.Steps, "steps", "", false, "")
	if preflight {
		switches.addFlag(c, &cfg.Request.Preflight, "preflight", "false", false, "")
	}
}

func init() {
	for _, pc := range pipelineCommands {
		rootCmd.AddCommand(newPipelineCmd(pc))
	}
}
