package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/ssh"
)

// connFlags 单台设备的连接参数
type connFlags struct {
	host           string
	port           int
	username       string
	password       string
	keyFile        string
	passphrase     string
	enablePassword string
	deviceType     string
	context        string
	connectTimeout time.Duration
	commandTimeout time.Duration
	fast           bool
	keepAlive      bool

	jumpHost     string
	jumpPort     int
	jumpUser     string
	jumpPassword string
	jumpKeyFile  string
}

var conn connFlags

func addConnFlags(cmd *cobra.Command, needType bool) {
	f := cmd.Flags()
	f.StringVarP(&conn.host, "host", "H", "", "Device address")
	f.IntVarP(&conn.port, "port", "P", 22, "SSH port")
	f.StringVarP(&conn.username, "username", "u", "", "Login user")
	f.StringVarP(&conn.password, "password", "p", "", "Login password (or NETDEV_PASSWORD)")
	f.StringVarP(&conn.keyFile, "key", "k", "", "Private key file, enables key authentication")
	f.StringVar(&conn.passphrase, "passphrase", "", "Private key passphrase")
	f.StringVar(&conn.enablePassword, "enable-password", "", "Privileged mode secret (or NETDEV_ENABLE_PASSWORD)")
	f.StringVarP(&conn.deviceType, "device-type", "t", "", "Driver name, see 'netdev types'")
	f.StringVar(&conn.context, "context", "", "ASA security context or FortiGate VDOM")
	f.DurationVar(&conn.connectTimeout, "connect-timeout", 0, "Connect timeout (default from config or 20s)")
	f.DurationVar(&conn.commandTimeout, "command-timeout", 0, "Per-command timeout (default from config or driver)")
	f.BoolVar(&conn.fast, "fast", false, "Treat read-only command timeouts as success")
	f.BoolVar(&conn.keepAlive, "keep-alive", false, "Send SSH keepalives at the configured interval")
	f.StringVar(&conn.jumpHost, "jump-host", "", "Bastion address")
	f.IntVar(&conn.jumpPort, "jump-port", 22, "Bastion SSH port")
	f.StringVar(&conn.jumpUser, "jump-user", "", "Bastion user")
	f.StringVar(&conn.jumpPassword, "jump-password", "", "Bastion password (or NETDEV_JUMP_PASSWORD)")
	f.StringVar(&conn.jumpKeyFile, "jump-key", "", "Bastion private key file")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("username")
	if needType {
		_ = cmd.MarkFlagRequired("device-type")
	}
}

// credentials 由命令行参数组装连接参数，密码可从环境变量读取
func (c connFlags) credentials() (netdev.Credentials, error) {
	creds := netdev.Credentials{
		Host:           c.host,
		Port:           c.port,
		Username:       c.username,
		Password:       firstNonEmpty(c.password, os.Getenv("NETDEV_PASSWORD")),
		EnablePassword: firstNonEmpty(c.enablePassword, os.Getenv("NETDEV_ENABLE_PASSWORD")),
		DeviceType:     c.deviceType,
		ConnectTimeout: netdev.Timeout(c.connectTimeout),
		CommandTimeout: netdev.Timeout(c.commandTimeout),
		FastMode:       c.fast,
		KeepAlive:      c.keepAlive,
		Context:        c.context,
	}
	if c.keyFile != "" {
		key, err := os.ReadFile(c.keyFile)
		if err != nil {
			return creds, fmt.Errorf("read private key: %w", err)
		}
		creds.AuthMethod = ssh.AuthPrivateKey
		creds.PrivateKey = string(key)
		creds.Passphrase = c.passphrase
	}
	if c.jumpHost != "" {
		jh := &netdev.JumpHost{
			Host:     c.jumpHost,
			Port:     c.jumpPort,
			Username: firstNonEmpty(c.jumpUser, c.username),
			Password: firstNonEmpty(c.jumpPassword, os.Getenv("NETDEV_JUMP_PASSWORD")),
		}
		if c.jumpKeyFile != "" {
			key, err := os.ReadFile(c.jumpKeyFile)
			if err != nil {
				return creds, fmt.Errorf("read jump host key: %w", err)
			}
			jh.AuthMethod = ssh.AuthPrivateKey
			jh.PrivateKey = string(key)
		}
		creds.JumpHost = jh
	}
	applyDefaults(&creds)
	return creds, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// runOperation 执行一次设备操作并输出结果，失败时返回错误使进程非零退出
func runOperation(cmd *cobra.Command, req interact.Request) error {
	creds, err := conn.credentials()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	res, err := newDispatcher().Execute(ctx, creds, req)
	if perr := render(cmd.OutOrStdout(), outputFmt, res); perr != nil {
		return perr
	}
	return err
}

var commandCmd = &cobra.Command{
	Use:   "command <command>",
	Short: "Run a single command and print its output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, interact.Request{Operation: interact.OpSendCommand, Command: strings.Join(args, " ")})
	},
}

var configLinesFile string

var configCmd = &cobra.Command{
	Use:   "config [line ...]",
	Short: "Apply configuration lines in config mode",
	Long: `Apply configuration lines. Lines come from arguments, from --file, or from
stdin when neither is given. Platforms with two-phase commit are committed
after the last line and rolled back if the commit fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readConfigLines(args, configLinesFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return runOperation(cmd, interact.Request{Operation: interact.OpSendConfig, ConfigLines: lines})
	},
}

// readConfigLines 跳过空行与 # 注释
func readConfigLines(args []string, file string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	src := stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}
	var lines []string
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no configuration lines given")
	}
	return lines, nil
}

var runningConfigCmd = &cobra.Command{
	Use:     "running-config",
	Aliases: []string{"show-run"},
	Short:   "Print the running configuration",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, interact.Request{Operation: interact.OpGetRunningConfig})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the running configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, interact.Request{Operation: interact.OpSaveConfig})
	},
}

var rebootYes bool

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !rebootYes {
			return fmt.Errorf("refusing to reboot %s without --yes", conn.host)
		}
		return runOperation(cmd, interact.Request{Operation: interact.OpReboot})
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Guess the device type from its version output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := conn.credentials()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		name, matched, err := newDispatcher().Detect(ctx, creds)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFmt, detectOutput{DeviceType: name, Matched: matched})
	},
}

type detectOutput struct {
	DeviceType string `json:"deviceType" yaml:"device_type"`
	Matched    bool   `json:"matched" yaml:"matched"`
}

func init() {
	for _, c := range []*cobra.Command{commandCmd, configCmd, runningConfigCmd, saveCmd, rebootCmd} {
		addConnFlags(c, true)
	}
	addConnFlags(detectCmd, false)
	configCmd.Flags().StringVarP(&configLinesFile, "file", "f", "", "Read configuration lines from file")
	rebootCmd.Flags().BoolVarP(&rebootYes, "yes", "y", false, "Confirm the reboot")
}
