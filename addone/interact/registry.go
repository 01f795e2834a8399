package interact

import (
	"sort"
	"strings"
	"sync"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

// 注册中心，按设备类型获取驱动；名称不区分大小写
var (
	registryMu sync.RWMutex
	registry   = map[string]netdev.Driver{
		GenericType: NewGeneric(),
	}
	aliases = map[string]string{}
)

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register 注册一个驱动，aliases 为兼容的别名
func Register(name string, driver netdev.Driver, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = normalize(name)
	registry[name] = driver
	for _, a := range alias {
		aliases[normalize(a)] = name
	}
}

// Lookup 获取设备类型对应的驱动，未知类型返回 UnsupportedDeviceType 并列出可用类型
func Lookup(deviceType string) (netdev.Driver, error) {
	registryMu.RLock()
	name := normalize(deviceType)
	if target, ok := aliases[name]; ok {
		name = target
	}
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindUnsupportedDeviceType, "unsupported device type %q, valid types: %s",
			deviceType, strings.Join(Types(), ", "))
	}
	return d, nil
}

// Types 已注册的设备类型（不含别名），按名称排序
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Aliases 别名到设备类型的映射副本
func Aliases() map[string]string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}
