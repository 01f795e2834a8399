package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/model"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

const defaultBackupConcurrency = 8

// Executor 执行单次设备操作，由 interact.Dispatcher 实现
type Executor interface {
	Execute(ctx context.Context, creds netdev.Credentials, req interact.Request) (netdev.CommandResult, error)
}

// RecordStore 备份记录持久化，可为空
type RecordStore interface {
	Create(r *model.BackupRecord) error
}

// BackupOptions 备份服务参数
type BackupOptions struct {
	Backend     string
	Concurrency int
	Records     RecordStore
	Now         func() time.Time
}

// BackupService 并发拉取运行配置并写入存储
type BackupService struct {
	exec   Executor
	writer StorageWriter
	opts   BackupOptions
}

// NewBackupService 创建备份服务
func NewBackupService(exec Executor, writer StorageWriter, opts BackupOptions) *BackupService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultBackupConcurrency
	}
	if opts.Backend == "" {
		opts.Backend = BackendLocal
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BackupService{exec: exec, writer: writer, opts: opts}
}

// Run 执行批量备份。单台设备失败不影响其他设备，结果顺序与请求一致。
func (s *BackupService) Run(ctx context.Context, req BackupBatchRequest) (*BackupBatchResponse, error) {
	if len(req.Devices) == 0 {
		return nil, errs.New(errs.KindConfigurationError, "devices are required")
	}
	taskID := strings.TrimSpace(req.TaskID)
	if taskID == "" {
		taskID = uuid.NewString()
	}
	backend := strings.ToLower(strings.TrimSpace(req.StorageBackend))
	if backend == "" {
		backend = s.opts.Backend
	}
	limit := req.Concurrency
	if limit <= 0 {
		limit = s.opts.Concurrency
	}
	started := s.opts.Now()

	results := make([]DeviceBackupResult, len(req.Devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range req.Devices {
		i, dev := i, req.Devices[i]
		g.Go(func() error {
			results[i] = s.backupOne(gctx, taskID, req.SaveDir, backend, started, dev)
			return nil
		})
	}
	_ = g.Wait()

	resp := &BackupBatchResponse{TaskID: taskID, Total: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	logger.Info("backup: batch finished", "task_id", taskID, "total", resp.Total, "succeeded", resp.Succeeded, "failed", resp.Failed)
	return resp, nil
}

func (s *BackupService) backupOne(ctx context.Context, taskID, saveDir, backend string, started time.Time, dev BackupDevice) DeviceBackupResult {
	t0 := time.Now()
	res := DeviceBackupResult{
		RecordID:   uuid.NewString(),
		Host:       dev.Host,
		Port:       dev.Port,
		Name:       dev.Name,
		DeviceType: dev.DeviceType,
		Timestamp:  s.opts.Now(),
	}
	if res.Port == 0 {
		res.Port = 22
	}
	defer func() {
		res.DurationMS = time.Since(t0).Milliseconds()
		s.record(taskID, backend, res)
	}()

	out, err := s.exec.Execute(ctx, dev.Credentials, interact.Request{Operation: interact.OpGetRunningConfig})
	if err == nil && !out.Success {
		err = errs.New(errs.KindUnknown, "%s", out.Error)
	}
	if err != nil {
		res.Error = err.Error()
		res.Kind = errs.KindOf(err)
		logger.Warn("backup: fetch running config failed", "host", dev.Host, "device_type", dev.DeviceType, "error", err)
		return res
	}

	obj, werr := s.writer.Write(ctx, StorageMeta{
		SaveDir:    saveDir,
		DeviceName: dev.Name,
		DeviceIP:   dev.Host,
		StartedAt:  started,
		TaskID:     taskID,
		FileName:   "running-config",
		Backend:    backend,
	}, out.Output)
	var fb *FallbackError
	switch {
	case werr == nil:
	case errors.As(werr, &fb):
		res.Warning = werr.Error()
	default:
		res.Error = werr.Error()
		logger.Error("backup: store running config failed", "host", dev.Host, "error", werr)
		return res
	}
	res.Success = true
	res.Object = &obj
	return res
}

func (s *BackupService) record(taskID, backend string, res DeviceBackupResult) {
	if s.opts.Records == nil {
		return
	}
	rec := &model.BackupRecord{
		ID:         res.RecordID,
		TaskID:     taskID,
		Host:       res.Host,
		Port:       res.Port,
		DeviceType: res.DeviceType,
		Status:     model.BackupStatusFailed,
		Backend:    backend,
		ErrorMsg:   res.Error,
		Duration:   res.DurationMS,
		CreatedAt:  res.Timestamp,
	}
	if res.Success {
		rec.Status = model.BackupStatusSuccess
		rec.Backend = res.Object.Backend
		rec.URI = res.Object.URI
		rec.Size = res.Object.Size
		rec.Checksum = res.Object.Checksum
		rec.ErrorMsg = res.Warning
	}
	if err := s.opts.Records.Create(rec); err != nil {
		logger.Warn("backup: save record failed", "host", res.Host, "error", err)
	}
}
