package cmd

import (
	"github.com/relloyd/starpipe/actions"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the star schema row counts against the staging tables",
	Long: `Check the star schema row counts against the staging tables.
Users, songs, artists and time must hold one row per distinct key found in staging.
The songplays count is reported only since each transform run appends to it.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		verifyCfg.ConfigFile = configFile
		verifyCfg.StackDumpOnPanic = stackDumpOnPanic
		return actions.RunVerify(&verifyCfg)
	},
}

var verifyCfg = actions.VerifyConfig{
	LogLevel: "error",
	Output:   actions.OutputText,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().SortFlags = false
	switches.addFlag(verifyCmd, &verifyCfg.Output, "verify-output", actions.OutputText, false, "")
	switches.addFlag(verifyCmd, &verifyCfg.LogLevel, "log-level", "error", false, "")
}
