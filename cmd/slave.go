package main

import (
	"elapsed_timer/internal/config"

	"github.com/spf13/cobra"
)

var slaveCmd = &cobra.Command{
	Use:   "slave",
	Short: "Run the counting node",
	Long:  `Restores the persisted counter, obeys control phrases from the link and serves state over HTTP and WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerNode(roleSlave, true, config.SourceEngine)
	},
}
