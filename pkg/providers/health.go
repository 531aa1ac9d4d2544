package providers

import (
	"context"
	"time"
)

const (
	defaultHealthInterval = 30 * time.Second
	healthCheckTimeout    = 5 * time.Second
	maxHealthBackoff      = 5 * time.Minute
)

// HealthCheck runs the provider's probe once and returns its error without
// touching the health record.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	p.mu.RLock()
	probe := p.probe
	p.mu.RUnlock()
	return probe(ctx)
}

// StartHealthChecker runs periodic health checks in the background until ctx
// is cancelled or the provider is closed. While the provider is unhealthy the
// interval backs off exponentially.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	if !p.checkerUp.CompareAndSwap(false, true) {
		return
	}
	go p.runHealthChecker(ctx)
}

func (p *HTTPProvider) runHealthChecker(ctx context.Context) {
	defer close(p.checkerDone)

	interval := p.config.HealthCheckInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	p.logger.Debug("health checker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-timer.C:
			p.checkOnce(ctx)

			next := interval
			if h := p.GetHealth(); !h.IsHealthy {
				next = healthBackoff(h.ConsecutiveFailures, interval)
			}
			timer.Reset(next)
		}
	}
}

func (p *HTTPProvider) checkOnce(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := p.HealthCheck(checkCtx)
	if err != nil {
		p.RecordFailure(err)
		p.logger.Debug("health check failed", "error", err, "latency", time.Since(start))
		return
	}
	p.RecordSuccess()
}

// healthBackoff doubles the interval per consecutive failure, capped at ten
// times the base interval and at maxHealthBackoff.
func healthBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	mult := 1
	for i := 0; i < failures && mult < 10; i++ {
		mult *= 2
	}
	if mult > 10 {
		mult = 10
	}
	d := base * time.Duration(mult)
	if d > maxHealthBackoff {
		d = maxHealthBackoff
	}
	return d
}
