package interact

import (
	"context"
	"regexp"
	"strings"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// 识别规则按顺序匹配，越具体的放越前
var detectRules = []struct {
	deviceType string
	pattern    *regexp.Regexp
}{
	{"cisco_ios_xr", regexp.MustCompile(`(?i)cisco ios xr`)},
	{"cisco_nxos", regexp.MustCompile(`(?i)nx-os|nexus`)},
	{"cisco_asa", regexp.MustCompile(`(?i)adaptive security appliance`)},
	{"cisco_sg300", regexp.MustCompile(`(?i)sg300|sg350|small business`)},
	{"cisco_ios", regexp.MustCompile(`(?i)cisco ios|ios-xe|cisco internetwork operating system`)},
	{"arista_eos", regexp.MustCompile(`(?i)arista`)},
	{"juniper_junos", regexp.MustCompile(`(?i)junos`)},
	{"huawei_vrp", regexp.MustCompile(`(?i)huawei versatile routing platform|\bvrp\b`)},
	{"h3c_comware", regexp.MustCompile(`(?i)comware|h3c`)},
	{"fortinet_fortios", regexp.MustCompile(`(?i)fortigate|fortios`)},
	{"paloalto_panos", regexp.MustCompile(`(?i)pan-os|sw-version`)},
	{"vyos", regexp.MustCompile(`(?i)vyos`)},
	{"ciena_saos", regexp.MustCompile(`(?i)saos|ciena`)},
	{"linux", regexp.MustCompile(`(?i)gnu/linux|\blinux\b`)},
}

// 依次尝试的探测命令
var detectProbes = []string{"show version", "display version", "uname -a"}

// MatchDeviceType 根据横幅或版本输出猜测设备类型
func MatchDeviceType(text string) (string, bool) {
	for _, r := range detectRules {
		if r.pattern.MatchString(text) {
			return r.deviceType, true
		}
	}
	return "", false
}

// Detect 以通用驱动建立最小会话，发送空命令与版本命令并匹配厂商关键字。
// 无法识别时返回 ("", false, nil)，由调用方决定设备类型。
func (d *Dispatcher) Detect(ctx context.Context, creds netdev.Credentials) (string, bool, error) {
	creds.DeviceType = GenericType
	creds.Pooled = false
	creds.FastMode = false
	conn, err := d.New(creds)
	if err != nil {
		return "", false, err
	}
	if err := conn.Connect(ctx); err != nil {
		return "", false, err
	}
	defer conn.Disconnect(context.Background())

	// 华为/华三的尖括号提示符本身就足够判断
	prompt := conn.Prompt()
	if strings.HasPrefix(prompt, "<") && strings.HasSuffix(prompt, ">") {
		guess := "huawei_vrp"
		if res, err := conn.SendCommand(ctx, "display version"); err == nil {
			if t, ok := MatchDeviceType(res.Output); ok {
				guess = t
			}
		}
		return guess, true, nil
	}

	for _, probe := range detectProbes {
		res, err := conn.SendCommand(ctx, probe)
		if t, ok := MatchDeviceType(res.Output); ok {
			logger.Info("dispatcher: device type detected", "host", creds.Host, "device_type", t, "probe", probe)
			return t, true, nil
		}
		if err != nil && !conn.Connected() {
			return "", false, err
		}
	}
	return "", false, nil
}
