package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// EnvPrefix 环境变量前缀，如 NETDEV_SERVER_PORT
const EnvPrefix = "NETDEV"

// Config 应用配置结构
type Config struct {
	Server    ServerConfig                      `mapstructure:"server"`
	SSH       SSHConfig                         `mapstructure:"ssh"`
	Pool      PoolConfig                        `mapstructure:"pool"`
	Log       logger.Config                     `mapstructure:"log"`
	Storage   StorageConfig                     `mapstructure:"storage"`
	Backup    BackupConfig                      `mapstructure:"backup"`
	Database  DatabaseConfig                    `mapstructure:"database"`
	Platforms map[string]PlatformOverrideConfig `mapstructure:"platforms"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 随服务启动设备模拟器
	SimulateEnable bool   `mapstructure:"simulate_enable"`
	SimulateConfig string `mapstructure:"simulate_config"`
}

// SSHConfig 会话参数，请求未指定时使用
type SSHConfig struct {
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	// 写入后的短暂停顿，部分设备在连续输入时会丢字符
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// 非 UTF-8 输出按 GB18030 解码
	DecodeLegacy bool   `mapstructure:"decode_legacy"`
	Term         string `mapstructure:"term"`
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxEntries    int           `mapstructure:"max_entries"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	Minio MinioConfig `mapstructure:"minio"`
}

// MinioConfig MinIO 配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// BackupConfig 运行配置备份
type BackupConfig struct {
	// StorageBackend local | minio
	StorageBackend string            `mapstructure:"storage_backend"`
	Prefix         string            `mapstructure:"prefix"`
	Concurrency    int               `mapstructure:"concurrency"`
	Local          LocalBackupConfig `mapstructure:"local"`
}

// LocalBackupConfig 本地存储配置
type LocalBackupConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PlatformOverrideConfig 按设备类型覆盖驱动数据
type PlatformOverrideConfig struct {
	DisablePaging  []string      `mapstructure:"disable_paging"`
	ErrorPatterns  []string      `mapstructure:"error_patterns"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Debounce       time.Duration `mapstructure:"debounce"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Load 加载配置文件；configPath 为空时按默认目录查找 config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Storage.Minio.SecretKey = expandEnv(config.Storage.Minio.SecretKey)
	config.Storage.Minio.AccessKey = expandEnv(config.Storage.Minio.AccessKey)

	// 平台键统一小写，与驱动注册名一致
	if len(config.Platforms) > 0 {
		normalized := make(map[string]PlatformOverrideConfig, len(config.Platforms))
		for k, p := range config.Platforms {
			normalized[strings.ToLower(strings.TrimSpace(k))] = p
		}
		config.Platforms = normalized
	}

	Set(&config)
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.simulate_enable", false)
	v.SetDefault("server.simulate_config", "simulate/simulate.yaml")

	v.SetDefault("ssh.connect_timeout", netdev.DefaultConnectTimeout)
	v.SetDefault("ssh.command_timeout", netdev.DefaultCommandTimeout)
	v.SetDefault("ssh.keep_alive_interval", 30*time.Second)
	v.SetDefault("ssh.settle_delay", 10*time.Millisecond)
	v.SetDefault("ssh.decode_legacy", true)
	v.SetDefault("ssh.width", 511)
	v.SetDefault("ssh.height", 24)

	v.SetDefault("pool.enabled", true)
	v.SetDefault("pool.idle_timeout", netdev.DefaultIdleTimeout)
	v.SetDefault("pool.sweep_interval", netdev.DefaultSweepInterval)
	v.SetDefault("pool.max_entries", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "./logs/netdev.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("backup.storage_backend", "local")
	v.SetDefault("backup.prefix", "configs")
	v.SetDefault("backup.concurrency", 8)
	v.SetDefault("backup.local.base_dir", "./data/backups")
	v.SetDefault("backup.local.mkdir_if_missing", true)

	v.SetDefault("database.sqlite.path", "./data/netdev.db")
	v.SetDefault("database.sqlite.max_idle_conns", 2)
	v.SetDefault("database.sqlite.max_open_conns", 4)
	v.SetDefault("database.sqlite.conn_max_lifetime", time.Hour)
}

// expandEnv 支持 ${VAR} 形式的取值
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		if value := os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")); value != "" {
			return value
		}
	}
	return s
}

// Get 获取全局配置
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Set 替换全局配置（热更新）
func Set(c *Config) {
	globalMu.Lock()
	globalConfig = c
	globalMu.Unlock()
}

// GetServerAddr 获取服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Override 设备类型对应的覆盖项，未配置时为 nil
func (c *Config) Override(deviceType string) *netdev.Override {
	if c == nil {
		return nil
	}
	p, ok := c.Platforms[strings.ToLower(deviceType)]
	if !ok {
		return nil
	}
	return &netdev.Override{
		DisablePaging:  p.DisablePaging,
		ErrorPatterns:  p.ErrorPatterns,
		CommandTimeout: p.CommandTimeout,
		Debounce:       p.Debounce,
	}
}

// NetdevPool 连接池参数；未开启时返回 false
func (c *Config) NetdevPool() (netdev.PoolConfig, bool) {
	return netdev.PoolConfig{
		IdleTimeout:   c.Pool.IdleTimeout,
		SweepInterval: c.Pool.SweepInterval,
		MaxEntries:    c.Pool.MaxEntries,
	}, c.Pool.Enabled
}

// Pty 终端参数
func (s SSHConfig) Pty() ssh.PtyOptions {
	opts := ssh.PtyOptions{Width: s.Width, Height: s.Height}
	if s.Term != "" {
		opts.Terms = []string{s.Term}
	}
	return opts
}

// ApplyDefaults 请求未指定的超时取配置值；保活是否开启由请求决定，间隔取配置值
func (s SSHConfig) ApplyDefaults(creds *netdev.Credentials) {
	if creds.ConnectTimeout <= 0 {
		creds.ConnectTimeout = netdev.Timeout(s.ConnectTimeout)
	}
	if creds.CommandTimeout <= 0 {
		creds.CommandTimeout = netdev.Timeout(s.CommandTimeout)
	}
	if creds.KeepAliveInterval <= 0 {
		creds.KeepAliveInterval = s.KeepAliveInterval
	}
}
