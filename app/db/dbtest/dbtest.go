// Package dbtest opens throwaway migrated sqlite databases for tests.
package dbtest

import (
	"path"
	"testing"

	"pmflow/app/db"
	"pmflow/pkg/contextx"

	"gorm.io/gorm"
)

func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.Open(&db.Config{Connection: "sqlite://" + path.Join(t.TempDir(), "pmflow.db")})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}

// NewContext returns an admin context bound to a fresh database.
func NewContext(t testing.TB) *contextx.Context {
	ctx := contextx.NewAdminContext()
	ctx.SetDB(NewDB(t))
	return ctx
}
