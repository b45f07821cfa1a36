package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_CreatesSchemaAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	if err := Run(ctx, db); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := Run(ctx, db); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("applied migrations = %d; want 2", n)
	}

	if _, err := db.Exec(`INSERT INTO observations (city, timestamp, precipitation, temperature, humidity, wind_speed)
		VALUES ('Kazan', '2025-10-19 08:00:00+00:00', 'none', 2.5, 80, 3.1)`); err != nil {
		t.Fatalf("insert valid row: %v", err)
	}
}

func TestSchema_RejectsOutOfRangeHumidityAndBlankCity(t *testing.T) {
	db := openMemDB(t)
	if err := Run(context.Background(), db); err != nil {
		t.Fatalf("Run: %v", err)
	}

	bad := []string{
		`INSERT INTO observations (city, timestamp, temperature, humidity, wind_speed) VALUES ('Ufa', '2025-10-19 08:00:00+00:00', 1, 101, 1)`,
		`INSERT INTO observations (city, timestamp, temperature, humidity, wind_speed) VALUES ('Ufa', '2025-10-19 08:00:00+00:00', 1, -1, 1)`,
		`INSERT INTO observations (city, timestamp, temperature, humidity, wind_speed) VALUES ('  ', '2025-10-19 08:00:00+00:00', 1, 50, 1)`,
	}
	for _, q := range bad {
		if _, err := db.Exec(q); err == nil {
			t.Errorf("expected constraint failure for %s", q)
		}
	}
}

func TestSchema_IDsAreNeverReused(t *testing.T) {
	db := openMemDB(t)
	if err := Run(context.Background(), db); err != nil {
		t.Fatalf("Run: %v", err)
	}
	insert := `INSERT INTO observations (city, timestamp, temperature, humidity, wind_speed) VALUES ('Ufa', '2025-10-19 08:00:00+00:00', 1, 50, 1)`
	res, err := db.Exec(insert)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	first, _ := res.LastInsertId()
	if _, err := db.Exec(`DELETE FROM observations WHERE id = ?`, first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	res, err = db.Exec(insert)
	if err != nil {
		t.Fatalf("insert again: %v", err)
	}
	second, _ := res.LastInsertId()
	if second <= first {
		t.Errorf("id %d reused or decreased after delete of %d", second, first)
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	before, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(before) != 2 || before[0].Version != "0001" || before[1].Version != "0002" {
		t.Fatalf("Status = %+v; want versions 0001, 0002", before)
	}
	for _, m := range before {
		if m.Applied {
			t.Errorf("%s reported applied before Run", m.Version)
		}
	}

	if err := Run(ctx, db); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, m := range after {
		if !m.Applied {
			t.Errorf("%s not applied after Run", m.Version)
		}
	}
}

func TestLoad_SkipsForeignFilesAndSorts(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_b.sql":   {Data: []byte("SELECT 2;")},
		"sql/0001_a.sql":   {Data: []byte("SELECT 1;")},
		"sql/README.md":    {Data: []byte("docs")},
		"sql/12_bad.sql":   {Data: []byte("SELECT 3;")},
		"sql/nested/x.sql": {Data: []byte("SELECT 4;")},
	}
	got, err := load(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("load returned %d migrations; want 2", len(got))
	}
	if got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("order = %s, %s; want a, b", got[0].Name, got[1].Name)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	v, n, ok := parseMigrationFilename("0001_observations.sql")
	if !ok || v != "0001" || n != "observations" {
		t.Errorf("got %q %q %v", v, n, ok)
	}
	if _, _, ok := parseMigrationFilename("observations.sql"); ok {
		t.Error("expected no match without version prefix")
	}
}

func TestCurrentAndLatest(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	if _, err := Current(ctx, db); err == nil {
		t.Error("Current before the bookkeeping table exists: want error")
	}

	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != "0002" {
		t.Errorf("Latest = %q; want 0002", latest)
	}

	if err := Run(ctx, db); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := Current(ctx, db)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != latest {
		t.Errorf("Current = %q; want %q", got, latest)
	}
}
