package netdev

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// 连接池默认参数
const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

// PoolConfig 连接池配置
type PoolConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// 0 表示不限制
	MaxEntries int `mapstructure:"max_entries"`
	// 时钟，测试可替换
	Now func() time.Time `mapstructure:"-"`
}

// PoolStats 连接池统计
type PoolStats struct {
	Entries int   `json:"entries" yaml:"entries"`
	Created int64 `json:"created" yaml:"created"`
	Reused  int64 `json:"reused" yaml:"reused"`
	Evicted int64 `json:"evicted" yaml:"evicted"`
}

// Pool 进程级连接池，按 host:port:username 保留存活会话。
// 由调用方创建并通过 Options 传给 Connection，生命周期由 Start/Stop 管理。
type Pool struct {
	cfg   PoolConfig
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*session
	stats   PoolStats

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPool 创建连接池
func NewPool(cfg PoolConfig) *Pool {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pool{cfg: cfg, entries: make(map[string]*session)}
}

// Start 启动后台空闲清理
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := p.Sweep(p.cfg.Now()); n > 0 {
					logger.Debug("pool: evicted idle sessions", "count", n)
				}
			}
		}
	}()
	logger.Info("pool: started", "idle_timeout", p.cfg.IdleTimeout.String(), "sweep_interval", p.cfg.SweepInterval.String())
}

// Stop 停止后台清理，不关闭已有会话
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// acquire 返回 key 对应的存活会话，不存在时调用 create 新建；并发请求同一 key 只建一次
func (p *Pool) acquire(ctx context.Context, key, driver string, create func(context.Context) (*session, error)) (*session, bool, error) {
	p.mu.Lock()
	s, ok := p.entries[key]
	p.mu.Unlock()
	if ok {
		if s.driver == driver && s.alive() {
			s.touch(p.cfg.Now())
			p.mu.Lock()
			p.stats.Reused++
			p.mu.Unlock()
			return s, true, nil
		}
		p.mu.Lock()
		if p.entries[key] == s {
			delete(p.entries, key)
			p.stats.Evicted++
		}
		p.mu.Unlock()
		logger.Debug("pool: replacing stale session", "key", key)
		go s.close()
	}

	leader := false
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		leader = true
		s, err := create(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.evictForRoom()
		p.entries[key] = s
		p.stats.Created++
		p.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !leader {
		p.mu.Lock()
		p.stats.Reused++
		p.mu.Unlock()
	}
	return v.(*session), !leader, nil
}

// evictForRoom 达到上限时淘汰最久未用的空闲会话，调用方持有 p.mu
func (p *Pool) evictForRoom() {
	if p.cfg.MaxEntries <= 0 || len(p.entries) < p.cfg.MaxEntries {
		return
	}
	var (
		oldestKey string
		oldest    *session
	)
	for k, s := range p.entries {
		if oldest == nil || s.idleSince().Before(oldest.idleSince()) {
			oldestKey, oldest = k, s
		}
	}
	if oldest == nil || !oldest.mu.TryLock() {
		return
	}
	delete(p.entries, oldestKey)
	p.stats.Evicted++
	_ = oldest.close()
	oldest.mu.Unlock()
}

func (p *Pool) touch(s *session) { s.touch(p.cfg.Now()) }

func (p *Pool) owns(s *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries[s.key] == s
}

// remove 会话失效或被重启时移出连接池
func (p *Pool) remove(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[s.key] == s {
		delete(p.entries, s.key)
	}
}

// Sweep 关闭空闲超过阈值或已失效的会话，返回淘汰数量。正在使用的会话跳过。
func (p *Pool) Sweep(now time.Time) int {
	p.mu.Lock()
	var victims []*session
	for key, s := range p.entries {
		idle := now.Sub(s.idleSince()) > p.cfg.IdleTimeout
		if !idle && !s.closed.Load() {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		delete(p.entries, key)
		p.stats.Evicted++
		victims = append(victims, s)
	}
	p.mu.Unlock()

	for _, s := range victims {
		if err := s.close(); err != nil {
			logger.Debug("pool: close evicted session", "key", s.key, "error", err)
		}
		s.mu.Unlock()
	}
	return len(victims)
}

// ForceCleanup 关闭所有会话，用于进程退出
func (p *Pool) ForceCleanup() int {
	p.mu.Lock()
	victims := make([]*session, 0, len(p.entries))
	for key, s := range p.entries {
		victims = append(victims, s)
		delete(p.entries, key)
	}
	p.stats.Evicted += int64(len(victims))
	p.mu.Unlock()

	for _, s := range victims {
		_ = s.close()
	}
	if len(victims) > 0 {
		logger.Info("pool: force cleanup", "closed", len(victims))
	}
	return len(victims)
}

// Len 当前条目数
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats 统计快照
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	st.Entries = len(p.entries)
	return st
}
