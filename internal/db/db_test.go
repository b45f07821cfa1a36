package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fellisss/Weather1/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  config.Config{SQLiteDSN: "file::memory:?cache=shared", SQLitePath: filepath.Join(dir, "ignored.db")},
			want: "file::memory:?cache=shared",
		},
		{
			name: "plain path",
			cfg:  config.Config{SQLitePath: filepath.Join(dir, "a", "weather.db")},
			want: "file:" + filepath.Join(dir, "a", "weather.db") + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name: "file uri with params",
			cfg:  config.Config{SQLitePath: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc"},
			want: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_FileBacked(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		cfg := config.Config{
			SQLiteDriver:       "sqlite3",
			SQLitePath:         filepath.Join(t.TempDir(), "nested", "weather.db"),
			SQLiteMaxOpenConns: 1,
			SQLiteMaxIdleConns: 1,
			SQLiteLogSQL:       logSQL,
		}
		conn, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open(logSQL=%v): %v", logSQL, err)
		}
		var mode string
		if err := conn.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
			t.Fatalf("journal_mode: %v", err)
		}
		if !strings.EqualFold(mode, "wal") {
			t.Errorf("journal_mode = %q; want wal", mode)
		}

		g, err := Gorm(conn)
		if err != nil {
			t.Fatalf("Gorm: %v", err)
		}
		var one int
		if err := g.Raw(`SELECT 1`).Scan(&one).Error; err != nil || one != 1 {
			t.Fatalf("gorm select 1: %d, %v", one, err)
		}
		if err := Close(conn); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestClose_Nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v", err)
	}
}
