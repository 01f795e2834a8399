package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
)

// StringList 以 JSON 文本存储的字符串列表
type StringList []string

// Value 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

// Scan 实现 sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// PlatformOverride 按设备类型覆盖驱动数据，运行时由调度器应用
//   - device_type: 驱动注册名（如 cisco_ios、huawei_vrp），唯一
//   - disable_paging: 替换驱动的关闭分页命令
//   - error_patterns: 追加的错误提示
type PlatformOverride struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	DeviceType       string     `gorm:"column:device_type;uniqueIndex;not null" json:"device_type"`
	DisablePaging    StringList `gorm:"type:text" json:"disable_paging"`
	ErrorPatterns    StringList `gorm:"type:text" json:"error_patterns"`
	CommandTimeoutMS int64      `json:"command_timeout_ms"`
	DebounceMS       int64      `json:"debounce_ms"`
	Remark           string     `json:"remark"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (PlatformOverride) TableName() string { return "platform_overrides" }

// ToOverride 转换为驱动覆盖项
func (p PlatformOverride) ToOverride() *netdev.Override {
	return &netdev.Override{
		DisablePaging:  append([]string(nil), p.DisablePaging...),
		ErrorPatterns:  append([]string(nil), p.ErrorPatterns...),
		CommandTimeout: time.Duration(p.CommandTimeoutMS) * time.Millisecond,
		Debounce:       time.Duration(p.DebounceMS) * time.Millisecond,
	}
}
