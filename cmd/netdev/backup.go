package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/service"
)

// inventory 备份清单文件
//
//	defaults:            # 所有设备共用的字段
//	  username: admin
//	  device_type: cisco_ios
//	devices:
//	  - name: core-1
//	    host: 10.0.0.1
type inventory struct {
	TaskID   string                 `yaml:"task_id"`
	SaveDir  string                 `yaml:"save_dir"`
	Defaults service.BackupDevice   `yaml:"defaults"`
	Devices  []service.BackupDevice `yaml:"devices"`
}

// loadInventory 读取清单并用 defaults 补齐各设备的空字段
func loadInventory(path string) (service.BackupBatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.BackupBatchRequest{}, err
	}
	var inv inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return service.BackupBatchRequest{}, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	if len(inv.Devices) == 0 {
		return service.BackupBatchRequest{}, fmt.Errorf("inventory %s has no devices", path)
	}
	d := inv.Defaults
	for i := range inv.Devices {
		c := &inv.Devices[i].Credentials
		c.Username = firstNonEmpty(c.Username, d.Username)
		c.Password = firstNonEmpty(c.Password, d.Password, os.Getenv("NETDEV_PASSWORD"))
		c.EnablePassword = firstNonEmpty(c.EnablePassword, d.EnablePassword, os.Getenv("NETDEV_ENABLE_PASSWORD"))
		c.DeviceType = firstNonEmpty(c.DeviceType, d.DeviceType)
		c.AuthMethod = firstNonEmpty(c.AuthMethod, d.AuthMethod)
		c.PrivateKey = firstNonEmpty(c.PrivateKey, d.PrivateKey)
		if c.Port == 0 {
			c.Port = d.Port
		}
		if c.CommandTimeout == 0 {
			c.CommandTimeout = d.CommandTimeout
		}
		if c.JumpHost == nil {
			c.JumpHost = d.JumpHost
		}
		applyDefaults(c)
	}
	return service.BackupBatchRequest{TaskID: inv.TaskID, SaveDir: inv.SaveDir, Devices: inv.Devices}, nil
}

var (
	backupBackend     string
	backupDir         string
	backupConcurrency int
)

var backupCmd = &cobra.Command{
	Use:   "backup <inventory.yaml>",
	Short: "Back up running configurations of many devices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadInventory(args[0])
		if err != nil {
			return err
		}
		cfg := config.Get()
		if cfg == nil {
			cfg = &config.Config{Backup: config.BackupConfig{StorageBackend: service.BackendLocal}}
		}
		if backupDir != "" {
			cfg.Backup.Local.BaseDir = backupDir
		}
		cfg.Backup.Local.MkdirIfMissing = true
		req.StorageBackend = firstNonEmpty(backupBackend, cfg.Backup.StorageBackend)
		req.Concurrency = backupConcurrency

		ctx, cancel := signalContext()
		defer cancel()
		svc := service.NewBackupService(newDispatcher(), service.NewStorageWriter(cfg), service.BackupOptions{
			Concurrency: cfg.Backup.Concurrency,
		})
		resp, err := svc.Run(ctx, req)
		if err != nil {
			return err
		}
		if err := render(cmd.OutOrStdout(), outputFmt, resp); err != nil {
			return err
		}
		if resp.Failed > 0 {
			return fmt.Errorf("%d of %d backups failed", resp.Failed, resp.Total)
		}
		return nil
	},
}

// typeRow 设备类型及别名
type typeRow struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

func typeRows() []typeRow {
	byName := map[string][]string{}
	for alias, name := range interact.Aliases() {
		byName[name] = append(byName[name], alias)
	}
	rows := make([]typeRow, 0)
	for _, name := range interact.Types() {
		aliases := byName[name]
		sort.Strings(aliases)
		rows = append(rows, typeRow{Name: name, Aliases: aliases})
	}
	return rows
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List supported device types and their aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return render(cmd.OutOrStdout(), outputFmt, typeRows())
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupBackend, "backend", "", "Storage backend: local or minio (default from config)")
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "Base directory for local backups")
	backupCmd.Flags().IntVarP(&backupConcurrency, "concurrency", "j", 0, "Devices backed up in parallel")
}
