package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/api/router"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/database"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/service"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

const version = "1.0.0"

func configPath() string {
	if p := os.Getenv("NETDEV_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func main() {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting netdev server", "version", version, "platforms", len(interact.Types()))

	// 初始化数据库
	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer database.Close()
	overrides := database.NewOverrideStore(database.GetDB())
	records := database.NewBackupStore(database.GetDB())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接池
	var pool *netdev.Pool
	if pc, enabled := cfg.NetdevPool(); enabled {
		pool = netdev.NewPool(pc)
		pool.Start(ctx)
		defer func() {
			pool.Stop()
			pool.ForceCleanup()
		}()
	}

	// 覆盖项：数据库优先，其次配置文件（随热更新生效）
	dispatcher := interact.NewDispatcher(interact.Config{
		Pool: pool,
		Overrides: interact.ChainOverrides(
			overrides,
			interact.OverrideFunc(func(t string) *netdev.Override { return config.Get().Override(t) }),
		),
		SettleDelay:  cfg.SSH.SettleDelay,
		DecodeLegacy: cfg.SSH.DecodeLegacy,
		Pty:          cfg.SSH.Pty(),
	})

	backupService := service.NewBackupService(dispatcher, service.NewStorageWriter(cfg), service.BackupOptions{
		Backend:     cfg.Backup.StorageBackend,
		Concurrency: cfg.Backup.Concurrency,
		Records:     records,
	})

	sim := newSimulator()
	if cfg.Server.SimulateEnable {
		sim.start(cfg.Server.SimulateConfig)
	}
	defer sim.stop()

	r := router.SetupRouter(router.Deps{
		Dispatcher: dispatcher,
		Backup:     backupService,
		Overrides:  overrides,
		Records:    records,
		Defaults:   func(c *netdev.Credentials) { config.Get().SSH.ApplyDefaults(c) },
		DBHealth:   database.Health,
		Version:    version,
	})

	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		logger.Info("Server starting", "addr", server.Addr, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	go watchConfig(ctx, path, func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		if newCfg.Server.SimulateEnable {
			sim.start(newCfg.Server.SimulateConfig)
		} else {
			sim.stop()
		}
	})

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}

// simulator 模拟 SSH 服务的启停，配置热更新时切换
type simulator struct {
	mu  sync.Mutex
	srv *simulate.Server
}

func newSimulator() *simulator { return &simulator{} }

func (s *simulator) start(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return
	}
	sc, err := simulate.LoadConfig(path)
	if err != nil {
		logger.Warn("Simulate: failed to load config", "path", path, "error", err)
		return
	}
	srv, err := simulate.NewServer(sc)
	if err != nil {
		logger.Warn("Simulate: failed to create server", "error", err)
		return
	}
	if err := srv.Start(); err != nil {
		logger.Warn("Simulate: failed to start", "error", err)
		return
	}
	s.srv = srv
	logger.Info("Simulate: started", "addr", srv.Addr(), "devices", len(sc.Devices))
}

func (s *simulator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	s.srv.Stop()
	s.srv = nil
	logger.Info("Simulate: stopped")
}
