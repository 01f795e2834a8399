package service

import (
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

// BackupBatchRequest 批量备份请求
type BackupBatchRequest struct {
	TaskID         string         `json:"task_id,omitempty" yaml:"task_id"`
	SaveDir        string         `json:"save_dir,omitempty" yaml:"save_dir"`
	StorageBackend string         `json:"storage_backend,omitempty" yaml:"storage_backend"` // local | minio（默认读取配置）
	Concurrency    int            `json:"concurrency,omitempty" yaml:"concurrency"`
	Devices        []BackupDevice `json:"devices" yaml:"devices"`
}

// BackupDevice 备份的设备：连接参数 + 展示名
type BackupDevice struct {
	Name               string `json:"name,omitempty" yaml:"name"`
	netdev.Credentials `yaml:",inline"`
}

// StoredObject 存储的对象信息
type StoredObject struct {
	Backend     string `json:"backend" yaml:"backend"`
	URI         string `json:"uri" yaml:"uri"`
	Size        int64  `json:"size" yaml:"size"`
	Checksum    string `json:"checksum" yaml:"checksum"`
	ContentType string `json:"content_type" yaml:"content_type"`
}

// DeviceBackupResult 单台设备备份结果
type DeviceBackupResult struct {
	RecordID   string        `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Host       string        `json:"host" yaml:"host"`
	Port       int           `json:"port" yaml:"port"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	DeviceType string        `json:"device_type" yaml:"device_type"`
	Success    bool          `json:"success" yaml:"success"`
	Object     *StoredObject `json:"object,omitempty" yaml:"object,omitempty"`
	Warning    string        `json:"warning,omitempty" yaml:"warning,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Kind       errs.Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	DurationMS int64         `json:"duration_ms" yaml:"duration_ms"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
}

// BackupBatchResponse 批量备份响应
type BackupBatchResponse struct {
	TaskID    string               `json:"task_id" yaml:"task_id"`
	Total     int                  `json:"total" yaml:"total"`
	Succeeded int                  `json:"succeeded" yaml:"succeeded"`
	Failed    int                  `json:"failed" yaml:"failed"`
	Results   []DeviceBackupResult `json:"results" yaml:"results"`
}
