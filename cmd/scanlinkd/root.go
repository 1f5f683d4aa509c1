// Command scanlinkd runs the ScanLink desktop agent: the WebSocket
// pairing/transport server that turns a paired phone into a wireless
// barcode scanner, plus operator CLI tooling for inspecting and revoking
// paired devices.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const version = "2.0.0"

var cfgStateDir string

var rootCmd = &cobra.Command{
	Use:     "scanlinkd",
	Short:   "ScanLink desktop pairing/transport agent",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgStateDir, "state-dir", defaultStateDir(), "Directory for persistent state (credential store, logs)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultStateDir returns XDG_STATE_HOME/scanlink or ~/.local/state/scanlink.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "scanlink")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".scanlink", "state")
	}
	return filepath.Join(home, ".local", "state", "scanlink")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "yes"
}
