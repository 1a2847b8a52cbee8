package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title        Elapsed Timer API
// @version      1.0
// @description  Slave-node timer control, state and event history.
// @BasePath     /

var rootCmd = &cobra.Command{
	Use:   "elapsed-timer",
	Short: "Persistent elapsed-time counter for a master/slave/remote node set",
	Long: `elapsed-timer runs one node of the timer appliance:
  slave   counts, persists and serves the counter
  master  reads the power and reset buttons and drives the slave over the link
  remote  serves the web remote control over the shared store`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./configs/config.yml)")

	rootCmd.AddCommand(slaveCmd)
	rootCmd.AddCommand(masterCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
