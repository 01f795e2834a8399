package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "core-sw_01", slug(" Core-SW 01 "))
	assert.Equal(t, "a_b_c", slug("a/b\\c"))
	assert.Equal(t, "10.0.0.1", slug("10.0.0.1"))
	assert.Equal(t, "unknown", slug("  "))
}

func TestLocalStorageWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewLocalStorageWriter(config.BackupConfig{
		Prefix: "configs",
		Local:  config.LocalBackupConfig{BaseDir: dir, MkdirIfMissing: true},
	})
	started := time.Date(2024, 3, 4, 10, 15, 42, 0, time.UTC)

	obj, err := w.Write(context.Background(), StorageMeta{
		DeviceName: "Core SW",
		DeviceIP:   "10.0.0.1",
		StartedAt:  started,
		TaskID:     "t1",
	}, "hostname core\n")
	require.NoError(t, err)

	want := filepath.Join(dir, "configs", "core_sw", "20240304_101542", "t1", "running-config.txt")
	assert.Equal(t, "file://"+want, obj.URI)
	assert.Equal(t, BackendLocal, obj.Backend)
	assert.EqualValues(t, len("hostname core\n"), obj.Size)
	assert.True(t, strings.HasPrefix(obj.Checksum, "sha256:"))

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "hostname core\n", string(data))
}

func TestLocalStorageWriterWithoutMkdir(t *testing.T) {
	w := NewLocalStorageWriter(config.BackupConfig{Local: config.LocalBackupConfig{BaseDir: t.TempDir()}})
	_, err := w.Write(context.Background(), StorageMeta{DeviceIP: "10.0.0.1"}, "x")
	assert.Error(t, err)
}

func TestDelegatingWriterFallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	w := &DelegatingStorageWriter{
		local: NewLocalStorageWriter(config.BackupConfig{Local: config.LocalBackupConfig{BaseDir: dir, MkdirIfMissing: true}}),
	}
	obj, err := w.Write(context.Background(), StorageMeta{DeviceIP: "r1", Backend: BackendMinio}, "cfg")
	var fb *FallbackError
	require.True(t, errors.As(err, &fb))
	assert.Equal(t, BackendLocal, obj.Backend)
	assert.True(t, strings.HasPrefix(obj.URI, "file://"+dir))
}

func TestInitMinioWriterNeedsEndpoint(t *testing.T) {
	assert.Nil(t, initMinioWriter(config.MinioConfig{}, ""))
}
