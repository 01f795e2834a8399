package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/all"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

var version = "dev"

// 全局参数
var (
	configFile string
	logLevel   string
	outputFmt  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netdev",
	Short: "Run CLI operations on network devices over SSH",
	Long: `netdev connects to routers, switches and firewalls over SSH and runs
commands, configuration changes, backups and reboots using per-vendor drivers.

Examples:
  netdev command -H 10.0.0.1 -u admin -t cisco_ios "show version"
  netdev config  -H 10.0.0.1 -u admin -t huawei_vrp -f changes.txt
  netdev backup  devices.yaml --backend local`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if logLevel == "" {
				logLevel = cfg.Log.Level
			}
		}
		if logLevel == "" {
			logLevel = "warn"
		}
		return logger.Init(logger.Config{Level: logLevel, Output: "console"})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file for SSH defaults and platform overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json or yaml")

	rootCmd.AddCommand(commandCmd, configCmd, runningConfigCmd, saveCmd, rebootCmd, detectCmd)
	rootCmd.AddCommand(backupCmd, typesCmd, simulateCmd)
}

// signalContext 收到中断信号时取消
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, closing session...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// newDispatcher 按已加载的配置构造调度器；未指定配置文件时使用内置默认值
func newDispatcher() *interact.Dispatcher {
	cfg := config.Get()
	if cfg == nil {
		return interact.NewDispatcher(interact.Config{})
	}
	return interact.NewDispatcher(interact.Config{
		Overrides:    interact.OverrideFunc(func(t string) *netdev.Override { return config.Get().Override(t) }),
		SettleDelay:  cfg.SSH.SettleDelay,
		DecodeLegacy: cfg.SSH.DecodeLegacy,
		Pty:          cfg.SSH.Pty(),
	})
}

func applyDefaults(c *netdev.Credentials) {
	if cfg := config.Get(); cfg != nil {
		cfg.SSH.ApplyDefaults(c)
	}
}
