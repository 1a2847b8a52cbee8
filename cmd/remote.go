package main

import (
	"elapsed_timer/internal/config"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Run the web remote control node",
	Long:  `Serves the remote control page over the shared store; resets are mirrored to the slave over the link.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerNode(roleRemote, false, config.SourceStore)
	},
}
