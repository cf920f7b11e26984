package objects

import (
	"pmflow/pkg/contextx"

	"gorm.io/gorm"
)

// Transaction runs fc with a context bound to one database transaction. A
// returned error rolls everything back.
func Transaction(ctx *contextx.Context, fc func(subCtx *contextx.Context) error) error {
	subCtx := ctx.Clone()
	return GetDB(ctx).Transaction(func(tx *gorm.DB) error {
		subCtx.SetDB(tx)
		return fc(subCtx)
	})
}
