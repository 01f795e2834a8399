package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "netdev.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func TestOverrideStoreUpsertAndLookup(t *testing.T) {
	store := NewOverrideStore(openTestDB(t))

	require.NoError(t, store.Upsert(&model.PlatformOverride{
		DeviceType:       " Cisco_IOS ",
		DisablePaging:    model.StringList{"terminal length 0", "terminal width 0"},
		ErrorPatterns:    model.StringList{"% Authorization failed"},
		CommandTimeoutMS: 45000,
	}))

	o := store.Override("cisco_ios")
	require.NotNil(t, o)
	assert.Equal(t, []string{"terminal length 0", "terminal width 0"}, o.DisablePaging)
	assert.Equal(t, 45*time.Second, o.CommandTimeout)

	require.NoError(t, store.Upsert(&model.PlatformOverride{DeviceType: "cisco_ios", CommandTimeoutMS: 1000}))
	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.EqualValues(t, 1000, all[0].CommandTimeoutMS)
	assert.Empty(t, all[0].DisablePaging)

	assert.Nil(t, store.Override("juniper_junos"))
}

func TestOverrideStoreDelete(t *testing.T) {
	store := NewOverrideStore(openTestDB(t))
	require.NoError(t, store.Upsert(&model.PlatformOverride{DeviceType: "vyos"}))

	require.NoError(t, store.Delete("VYOS"))
	_, err := store.Get("vyos")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("vyos"), ErrNotFound)
}

func TestBackupStore(t *testing.T) {
	store := NewBackupStore(openTestDB(t))
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(&model.BackupRecord{
			ID:        id,
			TaskID:    "task-1",
			Host:      "r1",
			Status:    model.BackupStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}
	recs, err := store.ListByHost("r1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)

	recs, err = store.ListByTask("task-1")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, IsBusyError(nil))
	assert.False(t, IsBusyError(assert.AnError))
	calls := 0
	err := WithRetry(nil, func(*gorm.DB) error {
		calls++
		return assert.AnError
	}, 3, time.Millisecond)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
