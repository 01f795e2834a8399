package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// OverrideStore 平台覆盖项存取；实现调度器的覆盖项来源
type OverrideStore struct {
	db *gorm.DB
}

// NewOverrideStore 创建存取对象
func NewOverrideStore(db *gorm.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

func normalizeType(t string) string { return strings.ToLower(strings.TrimSpace(t)) }

// Upsert 按设备类型新增或更新
func (s *OverrideStore) Upsert(o *model.PlatformOverride) error {
	o.DeviceType = normalizeType(o.DeviceType)
	return WithRetry(s.db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"disable_paging", "error_patterns", "command_timeout_ms", "debounce_ms", "remark", "updated_at"}),
		}).Create(o).Error
	}, 3, 0)
}

// Get 查询单个设备类型
func (s *OverrideStore) Get(deviceType string) (*model.PlatformOverride, error) {
	var o model.PlatformOverride
	err := s.db.Where("device_type = ?", normalizeType(deviceType)).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List 全部覆盖项
func (s *OverrideStore) List() ([]model.PlatformOverride, error) {
	var out []model.PlatformOverride
	err := s.db.Order("device_type").Find(&out).Error
	return out, err
}

// Delete 删除设备类型的覆盖项
func (s *OverrideStore) Delete(deviceType string) error {
	return WithRetry(s.db, func(tx *gorm.DB) error {
		res := tx.Where("device_type = ?", normalizeType(deviceType)).Delete(&model.PlatformOverride{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}, 3, 0)
}

// Override 供调度器查询，未配置或查询失败时返回 nil
func (s *OverrideStore) Override(deviceType string) *netdev.Override {
	o, err := s.Get(deviceType)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("database: load platform override failed", "device_type", deviceType, "error", err)
		}
		return nil
	}
	return o.ToOverride()
}
