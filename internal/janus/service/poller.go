package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller drives every registered lock monitor on a fixed interval. Each
// tick fans out one Poll per monitor; monitors that are still busy from
// the previous tick skip the cycle.
type Poller struct {
	registry *LockRegistry
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(reg *LockRegistry, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		registry: reg,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the polling loop. It runs an immediate cycle on startup,
// then repeats on the configured interval until ctx is cancelled or Stop
// is called.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("poller started (interval=%s, locks=%d)",
		p.interval, len(p.registry.Monitors()))
}

// Stop signals the poller to exit and waits for it to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.pollAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for _, m := range p.registry.Monitors() {
		wg.Add(1)
		go func(m *LockMonitor) {
			defer wg.Done()
			if err := m.Poll(ctx, now); err != nil {
				if err == ErrPollInFlight {
					p.logger.Printf("smartlock %d: previous poll still running, skipping tick", m.cfg.LockID)
					return
				}
				p.logger.Printf("smartlock %d: poll error: %v", m.cfg.LockID, err)
			}
		}(m)
	}
	wg.Wait()
}
