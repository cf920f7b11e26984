package contextx

import (
	"context"

	"gorm.io/gorm"
)

const (
	RequestIDKey = "requestId"
	ProcessKey   = "process"
	UserIDKey    = "user_id"
)

// Context carries the database handle (a transaction inside objects.Transaction)
// and loosely typed request-scoped values used by logging and permission checks.
type Context struct {
	context.Context
	dbTx      *gorm.DB
	data      map[string]interface{}
	adminRole bool
}

func (ctx *Context) Clone() *Context {
	newCtx := &Context{
		Context:   ctx.Context,
		dbTx:      ctx.dbTx,
		data:      map[string]interface{}{},
		adminRole: ctx.adminRole,
	}
	for k, v := range ctx.data {
		newCtx.data[k] = v
	}
	return newCtx
}

// WithContext returns a copy bound to parent, keeping the values and db handle.
func (ctx *Context) WithContext(parent context.Context) *Context {
	c := ctx.Clone()
	c.Context = parent
	return c
}

func (ctx *Context) Set(name string, value interface{}) {
	ctx.data[name] = value
}

func (ctx *Context) GetDB() *gorm.DB {
	return ctx.dbTx
}

func (ctx *Context) SetDB(tx *gorm.DB) {
	ctx.dbTx = tx
}

func (ctx *Context) GetString(name string) string {
	if v, ok := ctx.data[name].(string); ok {
		return v
	}
	return ""
}

// GetUserID returns the acting user, or nil for anonymous and system calls.
func (ctx *Context) GetUserID() *uint {
	if id, ok := ctx.data[UserIDKey].(uint); ok {
		return &id
	}
	return nil
}

func (ctx *Context) SetUserID(id uint) {
	ctx.data[UserIDKey] = id
}

func (ctx *Context) IsAdmin() bool {
	return ctx.adminRole
}

func (ctx *Context) SetAdmin(admin bool) {
	ctx.adminRole = admin
}

func NewContext() *Context {
	return &Context{
		Context: context.Background(),
		data:    map[string]interface{}{},
	}
}

func NewAdminContext() *Context {
	return &Context{
		Context:   context.Background(),
		data:      map[string]interface{}{},
		adminRole: true,
	}
}
