package simulate

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// presets 按设备类型取内置模板
var presets = map[string]func(string) *DeviceProfile{
	"cisco_ios":     CiscoIOS,
	"huawei_vrp":    HuaweiVRP,
	"juniper_junos": JuniperJunos,
	"linux":         Linux,
}

// FileConfig simulate.yaml 结构：devices 下每项可指定 preset 再覆盖字段
type FileConfig struct {
	Listen       string                  `mapstructure:"listen"`
	Password     string                  `mapstructure:"password"`
	HostKeyPath  string                  `mapstructure:"host_key_path"`
	MaxConn      int                     `mapstructure:"max_conn"`
	AllowForward bool                    `mapstructure:"allow_forward"`
	Devices      map[string]DeviceConfig `mapstructure:"devices"`
}

// DeviceConfig 单台模拟设备
type DeviceConfig struct {
	Preset   string            `mapstructure:"preset"`
	Hostname string            `mapstructure:"hostname"`
	Outputs  map[string]string `mapstructure:"outputs"`
}

// LoadConfig 读取模拟配置文件
func LoadConfig(path string) (ServerConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	return fc.Build()
}

// Build 将文件配置展开为服务配置
func (fc FileConfig) Build() (ServerConfig, error) {
	cfg := ServerConfig{
		Listen:       fc.Listen,
		Password:     fc.Password,
		HostKeyPath:  fc.HostKeyPath,
		MaxConn:      fc.MaxConn,
		AllowForward: fc.AllowForward,
		Devices:      make(map[string]*DeviceProfile, len(fc.Devices)),
	}
	for user, dc := range fc.Devices {
		preset := strings.ToLower(dc.Preset)
		if preset == "" {
			preset = "cisco_ios"
		}
		build, ok := presets[preset]
		if !ok {
			return ServerConfig{}, fmt.Errorf("device %s: unknown preset %q", user, dc.Preset)
		}
		hostname := dc.Hostname
		if hostname == "" {
			hostname = user
		}
		p := build(hostname)
		for cmd, out := range dc.Outputs {
			p.Outputs[cmd] = out
		}
		cfg.Devices[user] = p
	}
	return cfg, nil
}

// Preset 按名称获取内置模板
func Preset(name, hostname string) (*DeviceProfile, bool) {
	build, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return build(hostname), true
}
