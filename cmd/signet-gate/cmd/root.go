// Package cmd provides the CLI commands for Signet Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signetgate/signetgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "signet-gate",
	Short: "Signet Gate - HMAC request signing proxy",
	Long: `Signet Gate is a reverse proxy that signs every request it forwards.

Clients send plain HTTP requests to the gate; the gate computes an HMAC-SHA256
signature over the method, path, and a timestamp, attaches it as headers, and
forwards the request to the configured backend. The signing secret is fetched
from AWS Secrets Manager and cached for the lifetime of the process.

Quick start:
  1. Create a config file: signet-gate.yaml
  2. Run: signet-gate start

Configuration:
  Config is loaded from signet-gate.yaml in the current directory,
  $HOME/.signet-gate/, or /etc/signet-gate/.

  Environment variables can override config values with the SIGNET_GATE_ prefix.
  Example: SIGNET_GATE_UPSTREAM_BASE_URL=http://localhost:3000

Commands:
  start       Start the signing proxy server
  sign        Compute a signature for a request (debugging aid)
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./signet-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
