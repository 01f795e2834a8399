package model

import (
	"time"
)

// BackupRecord 运行配置备份记录
type BackupRecord struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TaskID     string    `json:"task_id" gorm:"type:varchar(64);not null;index"`
	Host       string    `json:"host" gorm:"type:varchar(128);not null;index"`
	Port       int       `json:"port" gorm:"not null;default:22"`
	DeviceType string    `json:"device_type" gorm:"type:varchar(64)"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null"`
	Backend    string    `json:"backend" gorm:"type:varchar(16)"`
	URI        string    `json:"uri" gorm:"type:text"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum" gorm:"type:varchar(80)"`
	ErrorMsg   string    `json:"error_msg" gorm:"type:text"`
	Duration   int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (BackupRecord) TableName() string {
	return "backup_records"
}

// 备份状态
const (
	BackupStatusSuccess = "success"
	BackupStatusFailed  = "failed"
)
