package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scanlink/scanlinkd/internal/logger"
	"github.com/scanlink/scanlinkd/internal/store"
	"github.com/scanlink/scanlinkd/internal/supervisor"
)

var cfgVerbose bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pairing/transport agent",
	Long: `Start the WebSocket pairing/transport server on port 8081, publish
mDNS discovery, and forward accepted scans to the keystroke injector. Runs
until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(cfgStateDir, cfgVerbose)

		st, err := store.Open(cfgStateDir)
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}

		hostname, err := os.Hostname()
		if err != nil {
			hostname = "scanlinkd"
		}

		sv := supervisor.New(st, hostname)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		info, err := sv.Start(ctx)
		if err != nil {
			return fmt.Errorf("start transport: %w", err)
		}
		printBanner(info)

		<-ctx.Done()
		slog.Info("shutting down")
		return sv.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&cfgVerbose, "verbose", envBool("SCANLINK_VERBOSE", false), "Enable debug-level console logging")
}

// printBanner prints the ConnectionInfo as the (out-of-scope) QR encoder
// would consume it: the phone app scans this payload to bootstrap pair.
func printBanner(info supervisor.ConnectionInfo) {
	payload, _ := json.Marshal(info)
	fmt.Printf("\n")
	fmt.Printf("  scanlinkd v%s\n", version)
	fmt.Printf("  ws://%s:%d\n", info.IP, info.Port)
	fmt.Printf("  qr payload: %s\n", payload)
	fmt.Printf("  state: %s\n", cfgStateDir)
	fmt.Printf("  health: http://%s:%d/health   metrics: http://%s:%d/metrics\n", info.IP, info.Port, info.IP, info.Port)
	fmt.Printf("\n")
}
