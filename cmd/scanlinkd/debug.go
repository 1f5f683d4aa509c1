package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/scanlink/scanlinkd/internal/discovery"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
}

var debugDiscoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Advertise a test mDNS record and list network interfaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		ifaces, err := net.Interfaces()
		if err != nil {
			return err
		}
		fmt.Println("Network interfaces:")
		for _, iface := range ifaces {
			addrs, _ := iface.Addrs()
			fmt.Printf("- %s (flags: %v)\n", iface.Name, iface.Flags)
			for _, addr := range addrs {
				fmt.Printf("    %s\n", addr.String())
			}
		}
		fmt.Println()

		hostname, _ := os.Hostname()
		adv, err := discovery.NewAdvertiser(discovery.Config{
			InstanceName: hostname + " (debug)",
			Port:         8081,
			MasterToken:  "DEBUGDEBUGDEBUGDEBUGDEBUGDEBUGDE",
		})
		if err != nil {
			return err
		}
		if err := adv.Start(); err != nil {
			return fmt.Errorf("start mdns advertiser: %w", err)
		}
		defer adv.Stop()

		fmt.Println("Advertising _scanlink._tcp.local. — press Ctrl+C to stop.")
		select {}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDiscoveryCmd)
}
