// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - High-throughput SPEAD data streaming sender",
	Long: `Strix is a high-throughput sender for SPEAD (Streaming Protocol for
Exchange of Astronomical Data). It slices heaps of typed items into fixed-size
wire packets and streams them over UDP with vectored, zero-copy transmission.

Features:
  - Deterministic heap-to-packet encoding (immediate and address item modes)
  - Bounded ring buffer between packetizer and sender threads
  - Pluggable heap sources: synthetic generator, pcap replay
  - UDP batch transport or length-prefixed file dumps
  - Prometheus metrics and structured logging`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/strix/config.yml",
		"config file path")

	// Add subcommands
	rootCmd.AddCommand(sendCmd)
}
