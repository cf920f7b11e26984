package db

import (
	"pmflow/app/db/models"

	"gorm.io/gorm"
)

func Migrate(conn *gorm.DB) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		for _, modObj := range models.Models {
			if err := tx.AutoMigrate(modObj); err != nil {
				return err
			}
		}
		return nil
	})
}
