package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fire every due timer once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		fired, err := rt.sweeper().SweepOnce(adminContext())
		if err != nil {
			return err
		}
		fmt.Printf("fired %d timers\n", fired)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
