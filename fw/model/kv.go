package model

import "sfidfw/fw/common/ttime"

// KV 引擎的持久化数据（规则集 / 配置档 / 日志缓冲），整块 JSON 存放
type KV struct {
	K              string     `gorm:"column:k;primaryKey"`
	V              []byte     `gorm:"column:v"`
	UpdateDateTime ttime.Time `gorm:"column:update_date_time"`
}

func (KV) TableName() string { return "kv_store" }
