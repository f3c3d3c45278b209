package main

import (
	"songbook/internal/di"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <device> <page path>",
	Short: "Forget the lockout, unlock flag and saved position of one device on one page",
	Long: `Clears what a device has stored for an album page, the same as opening the page
with ?reset. Run it while the server is stopped when the memory driver is in use,
otherwise the next snapshot overwrites the change.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := di.InitMaintenance(&flags)
		if err != nil {
			return err
		}
		defer m.Close()
		if err := m.ResetPage(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("reset %s for device %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
