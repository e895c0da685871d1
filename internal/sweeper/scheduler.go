package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"qabackend/config"
	"qabackend/internal/lifecycle"
	"qabackend/pkg/cache"
)

const (
	sweepLockKey  = "qa:lock:sweep"
	refundLockKey = "qa:lock:refund-retry"
	refundBatch   = 100
)

type sweepRunner interface {
	Sweep(ctx context.Context, now time.Time) Report
}

type refundRetrier interface {
	RetryRefunds(ctx context.Context, limit int) (lifecycle.RetryReport, error)
}

// Scheduler runs the sweep and the refund retry on their own tickers. With
// Redis configured, a run lock keeps each tick to one instance.
type Scheduler struct {
	sweeper       sweepRunner
	refunds       refundRetrier
	cache         *cache.Cache
	now           func() time.Time
	sweepInterval time.Duration
	retryInterval time.Duration
	lockTTL       time.Duration

	sweepTicker *time.Ticker
	retryTicker *time.Ticker
	stopCh      chan struct{}
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

func NewScheduler(s sweepRunner, r refundRetrier, c *cache.Cache, cfg config.SweeperConfig, now func() time.Time) *Scheduler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	sched := &Scheduler{
		sweeper:       s,
		refunds:       r,
		cache:         c,
		now:           now,
		sweepInterval: cfg.Interval,
		retryInterval: cfg.RefundRetryEvery,
		lockTTL:       cfg.LockTTL,
	}
	if sched.sweepInterval <= 0 {
		sched.sweepInterval = time.Hour
	}
	if sched.retryInterval <= 0 {
		sched.retryInterval = 15 * time.Minute
	}
	if sched.lockTTL <= 0 {
		sched.lockTTL = 10 * time.Minute
	}
	return sched
}

// Start launches the workers. The first sweep runs immediately so questions
// that came due while the process was down are not left waiting an interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg = &sync.WaitGroup{}
	s.running = true
	log.Printf("[Scheduler] starting: sweep every %s, refund retry every %s", s.sweepInterval, s.retryInterval)

	s.sweepTicker = time.NewTicker(s.sweepInterval)
	s.wg.Add(1)
	go s.sweepWorker(ctx, s.stopCh, s.sweepTicker, s.wg)

	s.retryTicker = time.NewTicker(s.retryInterval)
	s.wg.Add(1)
	go s.retryWorker(ctx, s.stopCh, s.retryTicker, s.wg)
}

// Stop halts the tickers, cancels an in-flight run and waits for the workers
// to return. The wait happens outside the lock.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	log.Printf("[Scheduler] stopping...")
	s.sweepTicker.Stop()
	s.retryTicker.Stop()
	close(s.stopCh)
	s.cancel()
	wg := s.wg
	s.stopCh = nil
	s.running = false
	s.mu.Unlock()

	wg.Wait()
	log.Printf("[Scheduler] stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) sweepWorker(ctx context.Context, stop <-chan struct{}, ticker *time.Ticker, wg *sync.WaitGroup) {
	defer wg.Done()
	s.RunSweepOnce(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunSweepOnce(ctx)
		}
	}
}

func (s *Scheduler) retryWorker(ctx context.Context, stop <-chan struct{}, ticker *time.Ticker, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunRefundRetryOnce(ctx)
		}
	}
}

// RunSweepOnce sweeps under the run lock. ran is false when another
// instance holds the lock.
func (s *Scheduler) RunSweepOnce(ctx context.Context) (report Report, ran bool) {
	ok, release, err := s.cache.TryLock(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		// Sweeps are idempotent; run unlocked rather than not at all.
		log.Printf("[Scheduler] sweep lock unavailable, sweeping anyway: %v", err)
		ok = true
	}
	if !ok {
		log.Printf("[Scheduler] sweep skipped, another instance holds the lock")
		return Report{}, false
	}
	defer release()
	return s.sweeper.Sweep(ctx, s.now()), true
}

func (s *Scheduler) RunRefundRetryOnce(ctx context.Context) (lifecycle.RetryReport, bool) {
	ok, release, err := s.cache.TryLock(ctx, refundLockKey, s.lockTTL)
	if err != nil {
		log.Printf("[Scheduler] refund retry lock unavailable, retrying anyway: %v", err)
		ok = true
	}
	if !ok {
		return lifecycle.RetryReport{}, false
	}
	defer release()
	report, err := s.refunds.RetryRefunds(ctx, refundBatch)
	if err != nil {
		log.Printf("[Scheduler] refund retry: %v", err)
	}
	return report, true
}
