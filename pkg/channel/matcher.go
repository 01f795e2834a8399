package channel

import (
	"regexp"
	"strings"
)

// Matcher 判断缓冲区尾部是否已出现完成标志
type Matcher interface {
	Match(text string) bool
}

// MatcherFunc 函数适配器
type MatcherFunc func(text string) bool

func (f MatcherFunc) Match(text string) bool { return f(text) }

// 通用提示符形态
var genericPrompts = []*regexp.Regexp{
	regexp.MustCompile(`^[\w.\-]+@[\w.\-]+:[^\s]*\s?[$#]$`),            // user@host:path$
	regexp.MustCompile(`^\[[\w.\-]+@[\w.\-]+(?:\s+[^\]]+)?\]\s?[$#]$`), // [user@host dir]$
	regexp.MustCompile(`^[\w.\-/:]+(?:\([\w.\-/: ]+\))?\s?[#>]$`),      // host(config)#  host>
	regexp.MustCompile(`^<[\w.\-/:]+>$`),                               // <HUAWEI>
	regexp.MustCompile(`^\[~?\*?[\w.\-/:]+(?:-[\w.\-/:]+)*\]$`),        // [HUAWEI-GigabitEthernet0/0/1]
	regexp.MustCompile(`^[\w.\-]+@[\w.\-]+[>#%]$`),                     // user@junos>
}

// PromptMatcher 以最后一个非空行判断提示符：
// 已学习的字面提示符、主机名前缀加终止符、或通用形态。
type PromptMatcher struct {
	// 已学习的完整提示符，如 "R1#"
	Prompts []string
	// 主机名前缀，学习到后要求提示符以此开头，允许模式变化（R1(config-if)#）
	Stem string
	// 厂商终止符集合，如 "#", ">"
	Terminators []string
	// 是否启用通用形态匹配
	Generic bool
	// 额外的厂商正则
	Patterns []*regexp.Regexp
}

// Match 实现 Matcher
func (m *PromptMatcher) Match(text string) bool {
	line := LastLine(Clean(text))
	if line == "" {
		return false
	}
	for _, p := range m.Prompts {
		if p != "" && strings.HasSuffix(line, p) {
			return true
		}
	}
	for _, t := range m.Terminators {
		if t == "" || !strings.HasSuffix(line, t) {
			continue
		}
		if m.Stem == "" || strings.HasPrefix(line, m.Stem) || strings.HasPrefix(line, "["+m.Stem) || strings.HasPrefix(line, "<"+m.Stem) {
			return true
		}
	}
	for _, re := range m.Patterns {
		if re.MatchString(line) {
			return true
		}
	}
	if m.Generic {
		for _, re := range genericPrompts {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// IsPrompt 便于清洗阶段单独判断一行是否为提示符
func (m *PromptMatcher) IsPrompt(line string) bool { return m.Match(line) }

// ExpectMatcher 期望字符串覆盖提示符检测，任一子串或正则命中即完成
type ExpectMatcher struct {
	Substrings []string
	Pattern    *regexp.Regexp
}

// Match 实现 Matcher
func (m *ExpectMatcher) Match(text string) bool {
	clean := Clean(text)
	for _, s := range m.Substrings {
		if s != "" && strings.Contains(clean, s) {
			return true
		}
	}
	return m.Pattern != nil && m.Pattern.MatchString(clean)
}

// AnyOf 任一匹配器命中即完成
func AnyOf(ms ...Matcher) Matcher {
	return MatcherFunc(func(text string) bool {
		for _, m := range ms {
			if m != nil && m.Match(text) {
				return true
			}
		}
		return false
	})
}

// Responder 子对话自动应答：匹配到 Pattern 时写入 Reply，每次出现只应答一次
type Responder struct {
	Name    string
	Pattern *regexp.Regexp
	Reply   string
}

// PagerResponders 分页提示应答
func PagerResponders() []Responder {
	return []Responder{
		{Name: "more", Pattern: regexp.MustCompile(`(?i)(-+\s*more\s*-+|<-+\s*more\s*-+>|\(more\)|--more--)`), Reply: " "},
		{Name: "press-any-key", Pattern: regexp.MustCompile(`(?i)press any key to continue`), Reply: " "},
	}
}

// RebootResponders 重启对话应答：重启前询问是否保存配置时回答 no，其余确认同 ConfirmResponders
func RebootResponders() []Responder {
	return append([]Responder{
		{Name: "save-before-reload", Pattern: regexp.MustCompile(`(?i)(save|modified)[^\r\n]*[\[(]\s*yes\s*/\s*no\s*[\])]\s*[:?]?\s*$`), Reply: "no\n"},
		{Name: "save-before-reload-yn", Pattern: regexp.MustCompile(`(?i)(save|modified)[^\r\n]*[\[(]\s*y\s*/\s*n\s*[\])]\s*[:?]?\s*$`), Reply: "n\n"},
	}, ConfirmResponders()...)
}

// ConfirmResponders 确认类对话应答，用于保存、重启等操作
func ConfirmResponders() []Responder {
	return []Responder{
		{Name: "yes-no", Pattern: regexp.MustCompile(`(?i)[\[(]\s*yes\s*/\s*no\s*[\])]\s*[:?]?\s*$`), Reply: "yes\n"},
		{Name: "y-n", Pattern: regexp.MustCompile(`(?i)[\[(]\s*y\s*/\s*n\s*[\])]\s*[:?]?\s*$`), Reply: "y\n"},
		{Name: "confirm", Pattern: regexp.MustCompile(`(?i)\[confirm\]\s*$`), Reply: "\n"},
		{Name: "destination", Pattern: regexp.MustCompile(`(?i)destination filename \[[^\]]*\]\?\s*$`), Reply: "\n"},
	}
}
