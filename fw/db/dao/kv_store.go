package dao

import (
	"context"
	"errors"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/model"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var daoKVLog = logx.New(logx.WithPrefix("dao.kv_store"))

// KVStore kv_store 表上的 firewall.Store 实现
type KVStore struct {
	db *gorm.DB
	sf singleflight.Group
}

func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{db: db}
}

// Load 同 key 并发读合并为一次查询；返回的切片归调用方所有
func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	v, err, _ := s.sf.Do(key, func() (any, error) {
		var row model.KV
		err := s.db.WithContext(ctx).Where("k = ?", key).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if row.V == nil {
			row.V = []byte{}
		}
		return row.V, nil
	})
	if err != nil {
		daoKVLog.Errorf("load key=%s err=%v", key, err)
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	b := v.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

// Save upsert（sqlite ON CONFLICT / mysql ON DUPLICATE KEY）
func (s *KVStore) Save(ctx context.Context, key string, data []byte) error {
	row := model.KV{K: key, V: data, UpdateDateTime: ttime.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v", "update_date_time"}),
	}).Create(&row).Error
	if err != nil {
		daoKVLog.Errorf("save key=%s size=%d err=%v", key, len(data), err)
		return err
	}
	daoKVLog.Tracef("saved key=%s size=%d", key, len(data))
	return nil
}

// Delete 返回是否真的删除了一行
func (s *KVStore) Delete(ctx context.Context, key string) (bool, error) {
	res := s.db.WithContext(ctx).Where("k = ?", key).Delete(&model.KV{})
	if res.Error != nil {
		daoKVLog.Errorf("delete key=%s err=%v", key, res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
