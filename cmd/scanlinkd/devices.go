package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scanlink/scanlinkd/internal/store"
)

// devicesCmd operates on the credential store directly rather than
// through a running agent — there is no admin RPC surface (see §6),
// only the phone-facing WebSocket protocol. Running this alongside a
// live "serve" is safe: the store's atomic write is the only shared
// resource, and a running agent reloads last_seen/authorized state from
// disk on its own pair/reconnect handling, not from a cached copy.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage authorized (paired) devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfgStateDir)
		if err != nil {
			return err
		}

		devices := st.ListDevices()
		if len(devices) == 0 {
			fmt.Println("No authorized devices.")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-20s  %-25s  %s\n", "DEVICE ID", "NAME", "MODEL", "PAIRED AT", "LAST SEEN")
		for _, dev := range devices {
			fmt.Printf("%-36s  %-20s  %-20s  %-25s  %s\n", dev.DeviceID, dev.DeviceName, dev.DeviceModel, dev.PairedAt, dev.LastSeen)
		}
		return nil
	},
}

var devicesRevokeCmd = &cobra.Command{
	Use:   "revoke [device-id]",
	Short: "Revoke one authorized device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfgStateDir)
		if err != nil {
			return err
		}

		deviceID := args[0]
		removed, err := st.RemoveDevice(deviceID)
		if err != nil {
			return fmt.Errorf("revoke: %w", err)
		}
		if !removed {
			return fmt.Errorf("device not found: %s", deviceID)
		}

		fmt.Printf("Revoked device %s\n", deviceID)
		return nil
	},
}

var devicesRevokeAllCmd = &cobra.Command{
	Use:   "revoke-all",
	Short: "Revoke every authorized device",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfgStateDir)
		if err != nil {
			return err
		}
		if err := st.RevokeAll(); err != nil {
			return fmt.Errorf("revoke-all: %w", err)
		}
		fmt.Println("Revoked all authorized devices.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRevokeCmd)
	devicesCmd.AddCommand(devicesRevokeAllCmd)
}
