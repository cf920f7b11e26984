package main

import (
	"fmt"

	"pmflow/app/db"
	"pmflow/app/seeds"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the permission fixture for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDatabase(); err != nil {
			return err
		}
		defer db.Close(db.GetDBConnection())

		var userID *uint
		if cmd.Flags().Changed("user") {
			id, _ := cmd.Flags().GetUint("user")
			userID = &id
		}

		seeder, err := seeds.NewPermissionSeeder()
		if err != nil {
			return err
		}
		ctx := adminContext()
		ctx.SetDB(db.GetDBConnection())
		group, err := seeder.Run(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("group %q (id %d) holds %d permissions\n", group.Name, group.ID, len(seeds.Permissions()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Uint("user", 0, "user to add to the group (default the first user)")
}
