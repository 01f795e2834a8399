package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputLines 命令输出的头部和尾部行
type OutputLines struct {
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
	Total     int      `json:"total"`
}

// ParseOutputLines 提取输出的头尾各 maxLines 行，行数不足时 tail 与 head 相同
func ParseOutputLines(output string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return OutputLines{}
	}

	lines := strings.Split(output, "\n")
	total := len(lines)
	n := maxLines
	if n > total {
		n = total
	}
	head := append([]string(nil), lines[:n]...)
	tail := append([]string(nil), lines[total-n:]...)
	return OutputLines{HeadLines: head, TailLines: tail, Total: total}
}

// Preview 将输出压缩为单行摘要，用于日志
func Preview(output string, maxLines int) string {
	lines := ParseOutputLines(output, maxLines)
	if lines.Total == 0 {
		return ""
	}
	if lines.Total <= len(lines.HeadLines) {
		return "[" + strings.Join(lines.HeadLines, " ⟩ ") + "]"
	}
	return "[" + strings.Join(lines.HeadLines, " ⟩ ") + "] ... [" + strings.Join(lines.TailLines, " ⟩ ") + "]"
}

// DebugCommandOutput 在 debug 级别记录命令输出摘要
func DebugCommandOutput(host, command, output string) {
	if !GetLogger().IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	p := Preview(output, 3)
	if p == "" {
		return
	}
	Debug("command output", "host", host, "command", command, "preview", p)
}
