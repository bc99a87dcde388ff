package dao

import (
	"context"
	"sfidfw/fw/model"
	"strings"

	"gorm.io/gorm"
)

type EventFilter struct {
	Action string
	Source string
	RuleID int64
}

// QueryEvents 查询某天的事件，最新在前；分表不存在时返回空
func QueryEvents(ctx context.Context, db *gorm.DB, day string, f EventFilter, page, size int) ([]model.FirewallEvent, int64, error) {
	tbl := model.EventTable(day)
	list := make([]model.FirewallEvent, 0)
	if !db.Migrator().HasTable(tbl) {
		return list, 0, nil
	}

	q := db.WithContext(ctx).Table(tbl)
	if a := strings.TrimSpace(f.Action); a != "" {
		q = q.Where("action = ?", strings.ToLower(a))
	}
	if s := strings.TrimSpace(f.Source); s != "" {
		q = q.Where("source = ?", s)
	}
	if f.RuleID > 0 {
		q = q.Where("rule_id = ?", f.RuleID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	err := q.Order("time DESC, id DESC").Offset((page - 1) * size).Limit(size).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
