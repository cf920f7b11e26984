// Package objects wraps the gorm models with persistence helpers. Every
// object carries the context it was loaded with, so a save inside
// Transaction joins that transaction.
package objects

import (
	"pmflow/app/db"
	"pmflow/pkg/contextx"

	"gorm.io/gorm"
)

// GetDB returns the handle bound to ctx (a transaction inside Transaction)
// or the shared connection.
func GetDB(ctx *contextx.Context) *gorm.DB {
	if ctx == nil || ctx.GetDB() == nil {
		return db.GetDBConnection()
	}
	return ctx.GetDB().WithContext(ctx)
}

// ContextObject remembers the context an object was created or loaded in.
type ContextObject struct {
	ctx *contextx.Context
}

func (c *ContextObject) GetContext() *contextx.Context {
	return c.ctx
}

func (c *ContextObject) SetContext(ctx *contextx.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// GetDB prefers ctx and falls back to the remembered context.
func (c *ContextObject) GetDB(ctx *contextx.Context) *gorm.DB {
	if ctx == nil {
		ctx = c.GetContext()
	}
	return GetDB(ctx)
}

// PersistentObject tracks whether the row exists; Save inserts once and
// Update refuses rows that were never saved.
type PersistentObject struct {
	created bool
}

func (p *PersistentObject) IsCreated() bool {
	return p.created
}

func (p *PersistentObject) SetCreated() {
	p.created = true
}
