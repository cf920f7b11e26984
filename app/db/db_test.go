package db

import (
	"path"
	"testing"

	"pmflow/app/db/models"

	"github.com/stretchr/testify/assert"
)

func TestOpen_SqliteMigrate(t *testing.T) {
	asserter := assert.New(t)

	conn, err := Open(&Config{Connection: "sqlite://" + path.Join(t.TempDir(), "pm.db")})
	if asserter.NoError(err) {
		defer Close(conn)
		if asserter.NoError(Migrate(conn)) {
			for _, m := range models.Models {
				asserter.True(conn.Migrator().HasTable(m))
			}
			// migrating twice is harmless
			asserter.NoError(Migrate(conn))
		}
	}
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(&Config{Connection: "postgres://localhost/pm"})
	assert.EqualError(t, err, "dialector 'postgres' is not supported")
}
