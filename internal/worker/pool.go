package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"timalaus_progression/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull       = errors.New("worker pool queue full")
	ErrPoolStopped     = errors.New("worker pool stopped")
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
)

const taskTimeout = 5 * time.Second

type Config struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queueSize"`
}

// XPUpdate mirrors one committed XP total to the leaderboard.
type XPUpdate struct {
	UserID  uuid.UUID
	XPTotal int64
}

type Sink interface {
	SetXP(ctx context.Context, userID uuid.UUID, xpTotal int64) error
}

// Pool applies leaderboard writes off the request path. Each user is pinned to one worker
// queue so their totals are written in publish order. When a queue is full new updates are
// dropped; the next write or a resync corrects the board.
type Pool struct {
	shards  []chan XPUpdate
	sink    Sink
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
	metrics *Metrics
}

type Metrics struct {
	mu           sync.Mutex
	processed    int64
	failed       int64
	backpressure int64
}

type MetricsSnapshot struct {
	Processed    int64
	Failed       int64
	Backpressure int64
	Queued       int
	Capacity     int
}

func NewPool(cfg Config, sink Sink) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	perShard := (cfg.QueueSize + cfg.Count - 1) / cfg.Count
	shards := make([]chan XPUpdate, cfg.Count)
	for i := range shards {
		shards[i] = make(chan XPUpdate, perShard)
	}

	return &Pool{
		shards:  shards,
		sink:    sink,
		ctx:     ctx,
		cancel:  cancel,
		metrics: &Metrics{},
	}
}

func (p *Pool) Start() {
	for i := range p.shards {
		p.wg.Add(1)
		go p.work(i)
	}
	logger.Logger().Info("worker pool started",
		zap.Int("workers", len(p.shards)),
		zap.Int("queue_size", p.capacity()),
	)
}

func (p *Pool) work(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.shards[id]:
			if !ok {
				return
			}
			p.process(id, task)
		}
	}
}

func (p *Pool) process(id int, task XPUpdate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error("worker panic recovered",
				zap.Int("worker", id),
				zap.String("user_id", task.UserID.String()),
				zap.Any("panic", r),
			)
			p.metrics.add(&p.metrics.failed)
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, taskTimeout)
	defer cancel()

	if err := p.sink.SetXP(ctx, task.UserID, task.XPTotal); err != nil {
		logger.Logger().Warn("failed to mirror xp to leaderboard",
			zap.Int("worker", id),
			zap.String("user_id", task.UserID.String()),
			zap.Error(err),
		)
		p.metrics.add(&p.metrics.failed)
		return
	}
	p.metrics.add(&p.metrics.processed)
}

// Submit queues an update without blocking.
func (p *Pool) Submit(task XPUpdate) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.shards[p.shardFor(task.UserID)] <- task:
		return nil
	default:
		p.metrics.add(&p.metrics.backpressure)
		return ErrQueueFull
	}
}

// Publish satisfies the services' leaderboard hook.
func (p *Pool) Publish(userID uuid.UUID, xpTotal int64) {
	if err := p.Submit(XPUpdate{UserID: userID, XPTotal: xpTotal}); err != nil {
		logger.Logger().Warn("leaderboard update dropped",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// Shutdown drains queued updates, giving up after timeout.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	for _, shard := range p.shards {
		close(shard)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m := p.Metrics()
		logger.Logger().Info("worker pool stopped",
			zap.Int64("processed", m.Processed),
			zap.Int64("failed", m.Failed),
			zap.Int64("backpressure", m.Backpressure),
		)
		return nil
	case <-time.After(timeout):
		p.cancel()
		return ErrShutdownTimeout
	}
}

func (p *Pool) Metrics() MetricsSnapshot {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	return MetricsSnapshot{
		Processed:    p.metrics.processed,
		Failed:       p.metrics.failed,
		Backpressure: p.metrics.backpressure,
		Queued:       p.queued(),
		Capacity:     p.capacity(),
	}
}

func (p *Pool) shardFor(userID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(userID[:])
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *Pool) queued() int {
	n := 0
	for _, shard := range p.shards {
		n += len(shard)
	}
	return n
}

func (p *Pool) capacity() int {
	n := 0
	for _, shard := range p.shards {
		n += cap(shard)
	}
	return n
}

func (m *Metrics) add(counter *int64) {
	m.mu.Lock()
	*counter++
	m.mu.Unlock()
}
