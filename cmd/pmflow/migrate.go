package main

import (
	"pmflow/app/db"
	"pmflow/pkg/log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDatabase(); err != nil {
			return err
		}
		conn := db.GetDBConnection()
		defer db.Close(conn)

		if err := db.Migrate(conn); err != nil {
			return err
		}
		log.Infof(nil, "database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
