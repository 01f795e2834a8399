// Package channel 提供交互式 Shell 通道上的读写原语与完成检测
package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// Options 通道参数
type Options struct {
	// 每次写入后的等待时间，给设备留出处理回显的时间
	SettleDelay time.Duration
	// 读取缓冲块大小
	ReadSize int
	// 为 true 时将非 UTF-8 输出按常见编码解码
	DecodeLegacy bool
	// 时钟，测试可替换
	Now func() time.Time
}

// Stream 交互式通道。后台协程持续读取，调用方按需消费。
type Stream struct {
	rw   io.ReadWriteCloser
	opts Options

	chunks chan []byte
	done   chan struct{}

	errMu   sync.Mutex
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// NewStream 包装底层读写器并启动读取协程
func NewStream(rw io.ReadWriteCloser, opts Options) *Stream {
	if opts.ReadSize <= 0 {
		opts.ReadSize = 4096
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Stream{
		rw:     rw,
		opts:   opts,
		chunks: make(chan []byte, 256),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.done)
	defer close(s.chunks)
	buf := make([]byte, s.opts.ReadSize)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			s.errMu.Lock()
			s.readErr = err
			s.errMu.Unlock()
			return
		}
	}
}

// Closed 通道是否已不可用
func (s *Stream) Closed() bool {
	select {
	case <-s.closed:
		return true
	case <-s.done:
		return len(s.chunks) == 0
	default:
		return false
	}
}

func (s *Stream) unavailable(err error) error {
	if err == nil {
		s.errMu.Lock()
		err = s.readErr
		s.errMu.Unlock()
	}
	if err == nil {
		err = io.EOF
	}
	return errs.Wrap(errs.KindChannelUnavailable, err, "channel unavailable")
}

// Write 写入原始文本并等待 SettleDelay
func (s *Stream) Write(text string) error {
	select {
	case <-s.closed:
		return s.unavailable(errors.New("stream closed"))
	default:
	}
	s.writeMu.Lock()
	_, err := io.WriteString(s.rw, text)
	s.writeMu.Unlock()
	if err != nil {
		return s.unavailable(err)
	}
	if s.opts.SettleDelay > 0 {
		time.Sleep(s.opts.SettleDelay)
	}
	return nil
}

// ReadFor 在固定时长内收集所有到达的数据，用于无明确结束标志的场景
func (s *Stream) ReadFor(ctx context.Context, d time.Duration) (string, error) {
	var out []byte
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if len(out) > 0 {
					return s.decode(out), nil
				}
				return "", s.unavailable(nil)
			}
			out = append(out, chunk...)
		case <-timer.C:
			return s.decode(out), nil
		case <-ctx.Done():
			return s.decode(out), ctx.Err()
		}
	}
}

// ReadOptions ReadUntil 参数
type ReadOptions struct {
	Matcher    Matcher
	Timeout    time.Duration
	Debounce   time.Duration
	Responders []Responder
}

// ReadUntil 读取直到完成检测器判定完成。超时返回已累积的输出和 PromptTimeout 错误。
func (s *Stream) ReadUntil(ctx context.Context, opts ReadOptions) (string, error) {
	det := NewDetector(DetectorConfig{
		Matcher:    opts.Matcher,
		Debounce:   opts.Debounce,
		Timeout:    opts.Timeout,
		Responders: opts.Responders,
	}, s.opts.Now())

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		state, wait := det.Step(s.opts.Now())
		switch state {
		case StateDone:
			return s.decode(det.Raw()), nil
		case StateTimedOut:
			return s.decode(det.Raw()), errs.New(errs.KindPromptTimeout, "no completion marker within %s", opts.Timeout)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if st, _ := det.Step(s.opts.Now()); st == StateDone || (st == StateCandidate && opts.Matcher != nil) {
					return s.decode(det.Raw()), nil
				}
				return s.decode(det.Raw()), s.unavailable(nil)
			}
			for _, reply := range det.Feed(chunk, s.opts.Now()) {
				logger.Debug("channel: auto reply", "reply", reply)
				if err := s.Write(reply); err != nil {
					return s.decode(det.Raw()), err
				}
			}
		case <-timer.C:
		case <-ctx.Done():
			return s.decode(det.Raw()), errs.Wrap(errs.KindPromptTimeout, ctx.Err(), "read interrupted")
		}
	}
}

// Drain 丢弃当前已到达但未消费的数据，返回丢弃的内容
func (s *Stream) Drain() string {
	var out []byte
	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return s.decode(out)
			}
			out = append(out, chunk...)
		default:
			return s.decode(out)
		}
	}
}

func (s *Stream) decode(b []byte) string {
	if s.opts.DecodeLegacy {
		return EnsureUTF8Bytes(b)
	}
	return string(b)
}

// Close 关闭底层通道，可重复调用
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.rw.Close()
	})
	return err
}
