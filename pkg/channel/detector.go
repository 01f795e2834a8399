package channel

import (
	"regexp"
	"time"
)

// State 完成检测器状态
type State int

const (
	// StateWaiting 尚未出现完成标志
	StateWaiting State = iota
	// StateCandidate 已出现完成标志，等待静默期确认
	StateCandidate
	// StateDone 完成
	StateDone
	// StateTimedOut 超时
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateCandidate:
		return "candidate"
	case StateDone:
		return "done"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// DetectorConfig 检测器参数
type DetectorConfig struct {
	Matcher Matcher
	// 完成标志出现后需保持静默的时长，0 表示立即完成
	Debounce time.Duration
	// 绝对超时
	Timeout    time.Duration
	Responders []Responder
}

// Detector 提示符/完成检测状态机。时间由调用方传入，便于以假时钟测试。
type Detector struct {
	cfg          DetectorConfig
	buf          []byte
	state        State
	lastActivity time.Time
	deadline     time.Time
	// 应答扫描起点，保证同一处子对话只应答一次
	scanFrom int
	// 完成判断起点；应答后前面的内容不再参与提示符判断
	evalFrom int
}

// NewDetector 以 now 作为起始时间创建检测器
func NewDetector(cfg DetectorConfig, now time.Time) *Detector {
	d := &Detector{cfg: cfg, lastActivity: now}
	if cfg.Timeout > 0 {
		d.deadline = now.Add(cfg.Timeout)
	}
	return d
}

// Feed 追加读取到的数据，返回需要写回设备的应答
func (d *Detector) Feed(chunk []byte, now time.Time) []string {
	if d.state == StateDone || d.state == StateTimedOut || len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)
	d.lastActivity = now
	if d.state == StateCandidate {
		d.state = StateWaiting
	}

	var replies []string
	for {
		tail := string(d.buf[d.scanFrom:])
		best, end := -1, 0
		var reply string
		for _, r := range d.cfg.Responders {
			loc := r.Pattern.FindStringIndex(tail)
			if loc == nil {
				continue
			}
			if best < 0 || loc[0] < best {
				best, end, reply = loc[0], loc[1], r.Reply
			}
		}
		if best < 0 {
			break
		}
		d.scanFrom += end
		d.evalFrom = d.scanFrom
		replies = append(replies, reply)
	}
	return replies
}

// Step 根据当前时间推进状态，返回新状态及下一次需要重新评估的等待时长
func (d *Detector) Step(now time.Time) (State, time.Duration) {
	if d.state == StateDone || d.state == StateTimedOut {
		return d.state, 0
	}
	if !d.deadline.IsZero() && !now.Before(d.deadline) {
		d.state = StateTimedOut
		return d.state, 0
	}

	if d.cfg.Matcher != nil && d.cfg.Matcher.Match(string(d.buf[d.evalFrom:])) {
		quiet := now.Sub(d.lastActivity)
		if quiet >= d.cfg.Debounce {
			d.state = StateDone
			return d.state, 0
		}
		d.state = StateCandidate
		return d.state, d.cfg.Debounce - quiet
	}

	d.state = StateWaiting
	if d.deadline.IsZero() {
		return d.state, time.Hour
	}
	return d.state, d.deadline.Sub(now)
}

// State 当前状态
func (d *Detector) State() State { return d.state }

// Output 已累积的原始输出
func (d *Detector) Output() string { return string(d.buf) }

// Raw 已累积的原始字节
func (d *Detector) Raw() []byte { return d.buf }

// CompileAll 编译正则列表，忽略空串
func CompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
