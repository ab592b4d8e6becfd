package cmd

import (
	"strings"

	"github.com/relloyd/starpipe/actions"
	"github.com/relloyd/starpipe/warehouse"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql [" + strings.Join(warehouse.PlanNames, "|") + "]",
	Short: "Print the statements of a plan without connecting to the warehouse",
	Long: `Print the statements of a plan without connecting to the warehouse.
The plan defaults to "run". Use --output yaml or json to see each step's definition,
or --steps to narrow the plan in the same way as the run commands.`,
	Args: getPlanFromArgsFunc(&sqlCfg.Plan, warehouse.PlanRun, warehouse.PlanNames),
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlCfg.ConfigFile = configFile
		sqlCfg.StackDumpOnPanic = stackDumpOnPanic
		return actions.RunSqlOutput(&sqlCfg)
	},
}

var sqlCfg = actions.SqlOutputConfig{
	LogLevel: "error",
	Plan:     warehouse.PlanRun,
	Output:   actions.OutputSql,
}

func init() {
	rootCmd.AddCommand(sqlCmd)
	sqlCmd.Flags().SortFlags = false
	switches.addFlag(sqlCmd, &sqlCfg.Output, "sql-output", actions.OutputSql, false, "")
	switches.addFlag(sqlCmd, &sqlCfg.Steps, "steps", "", false, "")
	switches.addFlag(sqlCmd, &sqlCfg.LogLevel, "log-level", "error", false, "")
}
