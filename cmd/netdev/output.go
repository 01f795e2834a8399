package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/service"
)

// render 按输出格式打印结果；text 格式对常见结果类型做人类可读排版
func render(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "", "text":
		return renderText(w, v)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderText(w io.Writer, v interface{}) error {
	switch r := v.(type) {
	case netdev.CommandResult:
		if r.Output != "" {
			fmt.Fprintln(w, strings.TrimRight(r.Output, "\n"))
		}
		if !r.Success {
			fmt.Fprintf(w, "FAILED [%s]: %s\n", r.Kind, r.Error)
		}
	case detectOutput:
		if !r.Matched {
			fmt.Fprintln(w, "unknown")
			return nil
		}
		fmt.Fprintln(w, r.DeviceType)
	case *service.BackupBatchResponse:
		for _, d := range r.Results {
			label := d.Host
			if d.Name != "" {
				label = d.Name + " (" + d.Host + ")"
			}
			switch {
			case d.Success && d.Warning != "":
				fmt.Fprintf(w, "OK    %s -> %s (warning: %s)\n", label, d.Object.URI, d.Warning)
			case d.Success:
				fmt.Fprintf(w, "OK    %s -> %s\n", label, d.Object.URI)
			default:
				fmt.Fprintf(w, "FAIL  %s: %s\n", label, d.Error)
			}
		}
		fmt.Fprintf(w, "\ntask %s: %d/%d succeeded\n", r.TaskID, r.Succeeded, r.Total)
	case []typeRow:
		for _, t := range r {
			if len(t.Aliases) > 0 {
				fmt.Fprintf(w, "%-18s %s\n", t.Name, strings.Join(t.Aliases, ", "))
				continue
			}
			fmt.Fprintln(w, t.Name)
		}
	default:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	return nil
}
