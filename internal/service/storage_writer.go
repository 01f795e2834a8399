package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// 存储后端
const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// StorageWriter 抽象存储写入器
type StorageWriter interface {
	Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error)
}

// StorageMeta 写入元数据，决定对象路径
type StorageMeta struct {
	SaveDir    string
	DeviceName string
	DeviceIP   string
	// StartedAt 任务开始时间，目录层使用 YYYYMMDD_HHMMSS
	StartedAt time.Time
	TaskID    string
	FileName  string
	Backend   string // local|minio
}

// objectParts 对象相对路径（本地与 MinIO 一致）
func (m StorageMeta) objectParts(prefix string) []string {
	var parts []string
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	if sd := strings.TrimSpace(m.SaveDir); sd != "" {
		parts = append(parts, sd)
	}
	label := strings.TrimSpace(m.DeviceName)
	if label == "" {
		label = strings.TrimSpace(m.DeviceIP)
	}
	parts = append(parts, slug(label))
	started := m.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	parts = append(parts, started.Format("20060102_150405"))
	if tid := strings.TrimSpace(m.TaskID); tid != "" {
		parts = append(parts, tid)
	}
	name := "running-config"
	if strings.TrimSpace(m.FileName) != "" {
		name = slug(m.FileName)
	}
	if !strings.Contains(name, ".") {
		name += ".txt"
	}
	return append(parts, name)
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// NewStorageWriter 根据配置创建写入器（委派到本地或 MinIO）
func NewStorageWriter(cfg *config.Config) StorageWriter {
	return &DelegatingStorageWriter{
		local: NewLocalStorageWriter(cfg.Backup),
		minio: initMinioWriter(cfg.Storage.Minio, cfg.Backup.Prefix),
	}
}

// DelegatingStorageWriter 按后端路由写入，MinIO 失败时回退本地
type DelegatingStorageWriter struct {
	local *LocalStorageWriter
	minio *MinioStorageWriter
}

// Write 返回对象的同时可能返回回退预警错误，调用方应记录但不视为失败
func (w *DelegatingStorageWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	backend := strings.ToLower(strings.TrimSpace(meta.Backend))
	if backend != BackendMinio {
		return w.local.Write(ctx, meta, content)
	}
	if w.minio == nil {
		logger.Warn("storage: minio backend selected but client not initialized; falling back to local")
		obj, lerr := w.local.Write(ctx, meta, content)
		if lerr != nil {
			return StoredObject{}, fmt.Errorf("minio client not initialized; local fallback failed: %w", lerr)
		}
		return obj, &FallbackError{Err: fmt.Errorf("minio client not initialized")}
	}
	obj, err := w.minio.Write(ctx, meta, content)
	if err == nil {
		return obj, nil
	}
	logger.Warn("storage: minio write failed; falling back to local", "error", err)
	objLocal, lerr := w.local.Write(ctx, meta, content)
	if lerr != nil {
		return StoredObject{}, fmt.Errorf("minio write failed: %v; local fallback failed: %w", err, lerr)
	}
	return objLocal, &FallbackError{Err: err}
}

// FallbackError 主后端失败但已回退本地成功
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("minio write failed: %v; fell back to local successfully", e.Err)
}

func (e *FallbackError) Unwrap() error { return e.Err }

// LocalStorageWriter 本地文件写入
type LocalStorageWriter struct {
	baseDir string
	prefix  string
	mkdir   bool
}

// NewLocalStorageWriter 创建本地写入器
func NewLocalStorageWriter(cfg config.BackupConfig) *LocalStorageWriter {
	baseDir := strings.TrimSpace(cfg.Local.BaseDir)
	if baseDir == "" {
		baseDir = "./data/backups"
	}
	return &LocalStorageWriter{baseDir: baseDir, prefix: cfg.Prefix, mkdir: cfg.Local.MkdirIfMissing}
}

func (w *LocalStorageWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	parts := meta.objectParts(w.prefix)
	fullPath := filepath.Join(append([]string{w.baseDir}, parts...)...)

	if w.mkdir {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return StoredObject{}, fmt.Errorf("failed to create dir: %w", err)
		}
	}
	data := []byte(content)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("failed to write file: %w", err)
	}
	return StoredObject{
		Backend:     BackendLocal,
		URI:         "file://" + fullPath,
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: "text/plain; charset=utf-8",
	}, nil
}

// MinioStorageWriter MinIO 对象存储写入
type MinioStorageWriter struct {
	client   *minio.Client
	endpoint string
	bucket   string
	prefix   string

	mu            sync.Mutex
	bucketEnsured bool
}

// initMinioWriter 尝试初始化 MinIO 写入器（包含超时设置与 bucket 校验）
func initMinioWriter(cfg config.MinioConfig, prefix string) *MinioStorageWriter {
	host := strings.TrimSpace(cfg.Host)
	if host == "" || cfg.Port <= 0 {
		logger.Debug("storage: minio not configured")
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", host, cfg.Port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Transport: transport,
	})
	if err != nil {
		logger.Error("storage: minio client initialization failed", "error", err)
		return nil
	}
	w := &MinioStorageWriter{client: client, endpoint: endpoint, bucket: strings.TrimSpace(cfg.Bucket), prefix: prefix}
	if w.bucket == "" {
		logger.Warn("storage: minio bucket not configured")
		return w
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.fastConnectivityCheck(ctx); err != nil {
		logger.Warn("storage: minio unreachable at init", "endpoint", endpoint, "error", err)
		return w
	}
	if err := w.ensureBucket(ctx, 1); err != nil {
		logger.Warn("storage: minio bucket ensure at init failed", "error", err)
	}
	return w
}

// Write 将内容写入 MinIO
func (w *MinioStorageWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	if w == nil || w.client == nil {
		return StoredObject{}, fmt.Errorf("minio client not initialized")
	}
	if w.bucket == "" {
		return StoredObject{}, fmt.Errorf("minio bucket not configured")
	}
	objectName := path.Join(meta.objectParts(w.prefix)...)
	data := []byte(content)
	ct := "text/plain; charset=utf-8"

	// 写入前快速连通性探测
	if err := w.fastConnectivityCheck(ctx); err != nil {
		return StoredObject{}, fmt.Errorf("minio connectivity failed to %s: %w", w.endpoint, err)
	}
	if err := w.ensureBucket(ctx, 3); err != nil {
		return StoredObject{}, fmt.Errorf("minio ensure bucket failed: %w", err)
	}

	var lastErr error
	for _, wait := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		attemptCtx, cancel := attemptContext(ctx, wait)
		_, err := w.client.PutObject(attemptCtx, w.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: ct})
		cancel()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return StoredObject{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	if lastErr != nil {
		return StoredObject{}, fmt.Errorf("minio put object failed after retries: %w", lastErr)
	}
	return StoredObject{
		Backend:     BackendMinio,
		URI:         "minio://" + path.Join(w.bucket, objectName),
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: ct,
	}, nil
}

// fastConnectivityCheck 使用 TCP 直连做快速连通性校验
func (w *MinioStorageWriter) fastConnectivityCheck(parent context.Context) error {
	d := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(parent, "tcp", w.endpoint)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ensureBucket 校验并创建 bucket，成功一次后不再校验
func (w *MinioStorageWriter) ensureBucket(parent context.Context, retries int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bucketEnsured {
		return nil
	}
	var lastErr error
	for i := 0; i <= retries; i++ {
		ctx, cancel := attemptContext(parent, 10*time.Second)
		exists, err := w.client.BucketExists(ctx, w.bucket)
		if err == nil && !exists {
			err = w.client.MakeBucket(ctx, w.bucket, minio.MakeBucketOptions{})
		}
		cancel()
		if err == nil {
			w.bucketEnsured = true
			return nil
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// attemptContext 构造限时上下文，尊重父上下文的剩余截止时间
func attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok {
		remain := time.Until(deadline)
		if remain > time.Second && prefer < remain {
			return context.WithTimeout(parent, prefer)
		}
		if remain > time.Second {
			return context.WithTimeout(parent, remain-time.Second)
		}
		return context.WithTimeout(parent, time.Second)
	}
	return context.WithTimeout(parent, prefer)
}

var slugRe = regexp.MustCompile(`[^a-z0-9._-]+`)

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_.")
	if s == "" {
		return "unknown"
	}
	return s
}
