package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "marketplace.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// Be tolerant across platforms/drivers:
	// - Windows: *os.PathError ("CreateFile … cannot find the file specified")
	// - SQLite:  "unable to open database file" / "out of memory (14)"
	// - Unix:    "no such file or directory"
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndMigrates(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "marketplace.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	// --- Verify PRAGMAs set by OpenSQLite ---
	var (
		journalMode string
		syncVal     int
		fkOn        int
		busyMS      int
	)
	if err := db.Raw("PRAGMA journal_mode;").Scan(&journalMode).Error; err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		t.Fatalf("journal_mode = %q; want wal", journalMode)
	}
	if err := db.Raw("PRAGMA synchronous;").Scan(&syncVal).Error; err != nil {
		t.Fatalf("synchronous: %v", err)
	}
	if syncVal != 1 { // NORMAL
		t.Fatalf("synchronous = %d; want 1 (NORMAL)", syncVal)
	}
	if err := db.Raw("PRAGMA foreign_keys;").Scan(&fkOn).Error; err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fkOn != 1 {
		t.Fatalf("foreign_keys = %d; want 1", fkOn)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Scan(&busyMS).Error; err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("busy_timeout = %d; want 5000", busyMS)
	}

	// --- Pool limits applied ---
	if got := sqlDB.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("MaxOpenConnections = %d; want 10", got)
	}

	// --- Schema migration works and is idempotent ---
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (repeat): %v", err)
	}
	for _, model := range []any{
		&domain.User{}, &domain.Cargo{}, &domain.Quote{},
		&domain.Deal{}, &domain.ChatThread{}, &domain.ChatMessage{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T after AutoMigrate", model)
		}
	}
}

func TestOpen_SelectsSQLiteWhenNoDSN(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "marketplace.db")

	db, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected sqlite file at %q: %v", path, statErr)
	}
}
