package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/all"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

// hostDialer 按主机名生成模拟设备，"down" 开头的主机不可达
type hostDialer struct{}

func (hostDialer) Dial(_ context.Context, c netdev.Credentials) (netdev.Transport, error) {
	if strings.HasPrefix(c.Host, "down") {
		return nil, errs.New(errs.KindHostUnreachable, "no route to %s", c.Host)
	}
	return simulate.NewPipeTransport(simulate.CiscoIOS(c.Host), &simulate.Recorder{}), nil
}

type memRecords struct {
	mu   sync.Mutex
	recs []model.BackupRecord
}

func (m *memRecords) Create(r *model.BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, *r)
	return nil
}

func device(host string) BackupDevice {
	return BackupDevice{Credentials: netdev.Credentials{
		Host:           host,
		Username:       "admin",
		Password:       "nova",
		DeviceType:     "cisco_ios",
		CommandTimeout: netdev.Seconds(3),
	}}
}

func TestBackupRun(t *testing.T) {
	dir := t.TempDir()
	writer := NewLocalStorageWriter(config.BackupConfig{Local: config.LocalBackupConfig{BaseDir: dir, MkdirIfMissing: true}})
	records := &memRecords{}
	svc := NewBackupService(
		interact.NewDispatcher(interact.Config{Dialer: hostDialer{}}),
		writer,
		BackupOptions{Concurrency: 2, Records: records},
	)

	resp, err := svc.Run(context.Background(), BackupBatchRequest{
		TaskID:  "nightly",
		Devices: []BackupDevice{device("r1"), device("down1"), device("r2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "nightly", resp.TaskID)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "r1", resp.Results[0].Host)
	assert.False(t, resp.Results[1].Success)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.Equal(t, "r2", resp.Results[2].Host)

	for _, r := range []DeviceBackupResult{resp.Results[0], resp.Results[2]} {
		require.True(t, r.Success, r.Error)
		require.NotNil(t, r.Object)
		data, err := os.ReadFile(strings.TrimPrefix(r.Object.URI, "file://"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "hostname "+r.Host)
		assert.NotContains(t, string(data), "--More--")
	}

	require.Len(t, records.recs, 3)
	statuses := map[string]string{}
	for _, rec := range records.recs {
		statuses[rec.Host] = rec.Status
		assert.Equal(t, "nightly", rec.TaskID)
	}
	assert.Equal(t, model.BackupStatusSuccess, statuses["r1"])
	assert.Equal(t, model.BackupStatusFailed, statuses["down1"])
}

func TestBackupRunGeneratesTaskID(t *testing.T) {
	svc := NewBackupService(
		interact.NewDispatcher(interact.Config{Dialer: hostDialer{}}),
		NewLocalStorageWriter(config.BackupConfig{Local: config.LocalBackupConfig{BaseDir: t.TempDir(), MkdirIfMissing: true}}),
		BackupOptions{},
	)
	resp, err := svc.Run(context.Background(), BackupBatchRequest{Devices: []BackupDevice{device("r1")}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, 1, resp.Succeeded)
}

func TestBackupRunRequiresDevices(t *testing.T) {
	svc := NewBackupService(interact.NewDispatcher(interact.Config{Dialer: hostDialer{}}), nil, BackupOptions{})
	_, err := svc.Run(context.Background(), BackupBatchRequest{})
	assert.Equal(t, errs.KindConfigurationError, errs.KindOf(err))
}
