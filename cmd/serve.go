package cmd

import (
	"net"
	"strconv"

	"github.com/relloyd/starpipe/actions"
	"github.com/relloyd/starpipe/constants"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service to launch runs and report their status",
	Long: `Start a web service to launch runs and report their status.
POST /runs starts a run using an optional JSON body such as {"plan": "transform"}.
Only one run may be active at a time. GET /runs/{runId}/status reports progress.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveConfig.ConfigFile = configFile
		serveConfig.StackDumpOnPanic = stackDumpOnPanic
		return actions.RunWebServer(&serveConfig)
	},
}

var serveConfig = actions.WebServerConfig{
	LogLevel: "info",
	Addr:     net.IP{0, 0, 0, 0},
	Port:     constants.WebServerDefaultPort,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", strconv.Itoa(constants.WebServerDefaultPort), false, "")
	switches.addFlag(serveCmd, &serveConfig.LogLevel, "log-level", "info", false, "")
}
