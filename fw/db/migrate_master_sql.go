package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// MigrateMasterSQL 原生 SQL 建表；driver: "mysql" | "sqlite"
func MigrateMasterSQL(g *gorm.DB, driver string) error {
	switch strings.ToLower(driver) {
	case "mysql":
		if err := g.Exec(`
CREATE TABLE IF NOT EXISTS kv_store (
  k VARCHAR(191) NOT NULL PRIMARY KEY,
  v LONGBLOB,
  update_date_time DATETIME NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`).Error; err != nil {
			return fmt.Errorf("mysql create kv_store: %w", err)
		}
		return nil

	case "sqlite", "sqlite3":
		if err := g.Exec(`
CREATE TABLE IF NOT EXISTS kv_store (
  k TEXT NOT NULL PRIMARY KEY,
  v BLOB,
  update_date_time DATETIME
);`).Error; err != nil {
			return fmt.Errorf("sqlite create kv_store: %w", err)
		}
		if err := ensureSQLiteTimeTrigger(g, "kv_store", "k"); err != nil {
			return fmt.Errorf("sqlite time trigger: %w", err)
		}
		return nil

	default:
		return ErrUnsupportedDriver
	}
}

// sqlite 没有 ON UPDATE，写入时由触发器补本地时间
func ensureSQLiteTimeTrigger(g *gorm.DB, table, pk string) error {
	for _, tr := range []struct{ ev, suffix string }{{"INSERT", "_ai_ts"}, {"UPDATE", "_au_ts"}} {
		name, ev := table+tr.suffix, tr.ev
		sql := fmt.Sprintf(`
CREATE TRIGGER IF NOT EXISTS %s
AFTER %s ON %q
FOR EACH ROW WHEN NEW.update_date_time IS NULL
BEGIN
  UPDATE %q SET update_date_time = datetime('now','localtime') WHERE %q = NEW.%q;
END;`, name, ev, table, table, pk, pk)
		if err := g.Exec(sql).Error; err != nil {
			return fmt.Errorf("create trigger %s: %w", name, err)
		}
	}
	return nil
}
