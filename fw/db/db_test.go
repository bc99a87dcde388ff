package db

import (
	"fmt"
	"sfidfw/fw/common/config"
	"sfidfw/fw/model"
	"testing"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := OpenGorm("sqlite3", dsn, config.DBPoolCfg{MaxOpen: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpenGorm_UnsupportedDriver(t *testing.T) {
	if _, err := OpenGorm("oracle", "x", config.DBPoolCfg{}); err != ErrUnsupportedDriver {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestMigrateMasterSQL_Idempotent(t *testing.T) {
	d := openMemory(t)
	if d.Driver != "sqlite" {
		t.Errorf("expected driver normalised to sqlite, got %s", d.Driver)
	}
	for i := 0; i < 2; i++ {
		if err := MigrateMasterSQL(d.GormDataSource, d.Driver); err != nil {
			t.Fatalf("migrate #%d: %v", i, err)
		}
	}
	if !d.GormDataSource.Migrator().HasTable("kv_store") {
		t.Fatalf("expected kv_store table")
	}
	if err := d.GormDataSource.Exec("INSERT INTO kv_store (k, v) VALUES (?, ?)", "a", []byte("1")).Error; err != nil {
		t.Fatal(err)
	}
	var row model.KV
	if err := d.GormDataSource.Where("k = ?", "a").Take(&row).Error; err != nil {
		t.Fatal(err)
	}
	if row.UpdateDateTime.IsZero() {
		t.Errorf("expected trigger to fill update_date_time")
	}
}

func TestEventTables(t *testing.T) {
	d := openMemory(t)
	for _, day := range []string{"20250907", "20250906"} {
		if err := EnsureEventLogTable(d, day); err != nil {
			t.Fatalf("ensure %s: %v", day, err)
		}
	}
	if err := EnsureEventLogTable(d, "20250906"); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}
	days, err := EventDays(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != "20250906" || days[1] != "20250907" {
		t.Errorf("expected [20250906 20250907], got %v", days)
	}
	if ok, err := DropEventTable(d, "20250906"); !ok || err != nil {
		t.Errorf("expected drop, got %v %v", ok, err)
	}
	if ok, err := DropEventTable(d, "20250906"); ok || err != nil {
		t.Errorf("expected missing table to be skipped, got %v %v", ok, err)
	}
}

func TestOpenGorm_MemoryPinsSingleConnection(t *testing.T) {
	d, err := OpenGorm("sqlite", "file::memory:?cache=shared", config.DBPoolCfg{MaxOpen: 8, MaxIdle: 0, MaxLifetimeSec: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	sqlDB, _ := d.GormDataSource.DB()
	if n := sqlDB.Stats().MaxOpenConnections; n != 1 {
		t.Errorf("expected 1 connection for memory db, got %d", n)
	}
}
