// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/Fellisss/Weather1/internal/db"
	"github.com/Fellisss/Weather1/internal/migrate"
)

// NewDB opens a migrated in-memory SQLite database that lives until the test
// ends. The pool is pinned to one connection so every query sees the same
// in-memory database.
func NewDB(t testing.TB) (*sql.DB, *gorm.DB) {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if err := migrate.Run(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	g, err := db.Gorm(sqlDB)
	if err != nil {
		t.Fatalf("gorm: %v", err)
	}
	return sqlDB, g
}
