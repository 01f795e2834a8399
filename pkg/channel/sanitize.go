package channel

import (
	"regexp"
	"strings"
)

var (
	ansiCSI     = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)
	ansiOther   = regexp.MustCompile(`\x1b[()][A-Za-z0-9]|\x1b[@-Z\\-_]`)
	controlRune = regexp.MustCompile(`[\x00-\x07\x0b\x0c\x0e-\x1f\x7f]`)
	// 分页提示被退格/空格覆盖后残留的片段
	pagerResidue = regexp.MustCompile(`(?i)([ \t]*-+[ \t]*more[ \t]*-+[ \t]*|<-+\s*more\s*-+>|--more--|\(more\)|press any key to continue)[\x08 ]*`)
)

// StripANSI 移除 ANSI 转义序列及不可见控制符（保留换行、回车、制表符）
func StripANSI(s string) string {
	s = ansiCSI.ReplaceAllString(s, "")
	s = ansiOther.ReplaceAllString(s, "")
	s = applyBackspaces(s)
	return controlRune.ReplaceAllString(s, "")
}

func applyBackspaces(s string) string {
	if !strings.ContainsRune(s, '\b') {
		return s
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\b' {
			if n := len(out); n > 0 && out[n-1] != '\n' {
				out = out[:n-1]
			}
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// NormalizeNewlines CRLF 转为 LF，孤立 CR 视为行内回车覆盖并丢弃
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n\r", "\n")
	return strings.ReplaceAll(s, "\r", "")
}

// StripPager 移除分页提示残留
func StripPager(s string) string {
	return pagerResidue.ReplaceAllString(s, "")
}

// Clean 统一清洗：ANSI、换行、分页残留
func Clean(s string) string {
	return StripPager(NormalizeNewlines(StripANSI(s)))
}

// LastLine 返回最后一个非空行（去掉右侧空白）
func LastLine(s string) string {
	s = strings.TrimRight(NormalizeNewlines(s), " \t\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimLeft(s[i+1:], " \t")
	}
	return strings.TrimLeft(s, " \t")
}

// StripEcho 移除首行的命令回显。首行可能带有提示符前缀，如 "R1#show clock"。
// 首行不是回显时原样返回，因此对已清洗的输出重复调用不会再删除内容。
func StripEcho(s, command string) string {
	s = strings.TrimLeft(s, "\n")
	command = strings.TrimSpace(command)
	if command == "" {
		return s
	}
	line, rest, found := strings.Cut(s, "\n")
	if !isEchoLine(strings.TrimRight(line, " \t"), command) {
		return s
	}
	if !found {
		return ""
	}
	return rest
}

func isEchoLine(line, command string) bool {
	if line == command {
		return true
	}
	if !strings.HasSuffix(line, command) {
		return false
	}
	head := strings.TrimRight(strings.TrimSuffix(line, command), " ")
	if head == "" {
		return false
	}
	return strings.ContainsRune(promptTerminators, rune(head[len(head)-1]))
}

// 常见提示符终止字符
const promptTerminators = "#>$%]:"

// StripTrailingPrompt 当最后一个非空行是提示符时将其移除；否则原样返回
func StripTrailingPrompt(s string, m Matcher) string {
	trimmed := strings.TrimRight(s, " \t\n")
	last := LastLine(trimmed)
	if last == "" || m == nil || !m.Match(last) {
		return s
	}
	i := strings.LastIndexByte(trimmed, '\n')
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}

// StripPatterns 移除厂商特有的横幅或状态行
func StripPatterns(s string, patterns []*regexp.Regexp) string {
	if len(patterns) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		drop := false
		for _, p := range patterns {
			if p.MatchString(line) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
