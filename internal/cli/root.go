package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configFlag 覆盖 BEAR_CONFIG_FILE
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "bear-monitor",
	Short: "BEAR wearable telemetry monitor",
	Long: `Connects to a BEAR wearable over Bluetooth serial (or an MQTT gateway),
classifies each telemetry line, shows warnings and relays critical alerts
to emergency contacts through bear-relay.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFlag != "" {
			return os.Setenv("BEAR_CONFIG_FILE", configFlag)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "YAML config file (env vars still override it)")
}

// Execute 运行命令行
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
