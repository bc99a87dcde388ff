package db

import (
	"fmt"
	"sfidfw/fw/model"
	"sort"
)

// EnsureEventLogTable 按日建事件分表（含索引）；day 形如 "20250906"
func EnsureEventLogTable(d *DB, day string) error {
	tbl := model.EventTable(day)

	switch d.Driver {
	case "mysql":
		return d.GormDataSource.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id BIGINT PRIMARY KEY AUTO_INCREMENT,
  time BIGINT NOT NULL,
  direction VARCHAR(16) NOT NULL,
  protocol VARCHAR(8) NOT NULL,
  port INT,
  source VARCHAR(255),
  destination VARCHAR(255),
  action VARCHAR(8) NOT NULL,
  rule_id BIGINT,
  reason VARCHAR(32),
  KEY idx_%[1]s_time (time),
  KEY idx_%[1]s_action_time (action, time),
  KEY idx_%[1]s_source_time (source, time),
  KEY idx_%[1]s_rule_time (rule_id, time)
);`, tbl)).Error

	case "sqlite":
		if err := d.GormDataSource.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  time BIGINT NOT NULL,
  direction TEXT NOT NULL,
  protocol TEXT NOT NULL,
  port INTEGER,
  source TEXT,
  destination TEXT,
  action TEXT NOT NULL,
  rule_id BIGINT,
  reason TEXT
);`, tbl)).Error; err != nil {
			return err
		}
		for _, ix := range []struct{ name, cols string }{
			{"time", "time"},
			{"action_time", "action, time"},
			{"source_time", "source, time"},
			{"rule_time", "rule_id, time"},
		} {
			sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);", tbl, ix.name, tbl, ix.cols)
			if err := d.GormDataSource.Exec(sql).Error; err != nil {
				return err
			}
		}
		return nil

	default:
		return ErrUnsupportedDriver
	}
}

// EventDays 已存在的事件分表日期，升序
func EventDays(d *DB) ([]string, error) {
	tables, err := d.GormDataSource.Migrator().GetTables()
	if err != nil {
		return nil, err
	}
	var days []string
	for _, t := range tables {
		if day, ok := model.DayOfEventTable(t); ok {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days, nil
}

// DropEventTable 不存在时返回 false
func DropEventTable(d *DB, day string) (bool, error) {
	tbl := model.EventTable(day)
	m := d.GormDataSource.Migrator()
	if !m.HasTable(tbl) {
		return false, nil
	}
	if err := m.DropTable(tbl); err != nil {
		return false, err
	}
	return true, nil
}
