package database

import (
	"gorm.io/gorm"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
)

// BackupStore 备份记录存取
type BackupStore struct {
	db *gorm.DB
}

// NewBackupStore 创建存取对象
func NewBackupStore(db *gorm.DB) *BackupStore {
	return &BackupStore{db: db}
}

// Create 写入一条记录
func (s *BackupStore) Create(r *model.BackupRecord) error {
	return WithRetry(s.db, func(tx *gorm.DB) error { return tx.Create(r).Error }, 3, 0)
}

// ListByHost 按设备查询，最新在前；limit<=0 时不限制
func (s *BackupStore) ListByHost(host string, limit int) ([]model.BackupRecord, error) {
	q := s.db.Where("host = ?", host).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.BackupRecord
	return out, q.Find(&out).Error
}

// ListByTask 查询一次批量任务的全部记录
func (s *BackupStore) ListByTask(taskID string) ([]model.BackupRecord, error) {
	var out []model.BackupRecord
	return out, s.db.Where("task_id = ?", taskID).Order("host").Find(&out).Error
}
