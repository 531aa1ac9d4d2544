package main

import (
	"context"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/providers"
)

type atomicCounter struct{ n atomic.Int64 }

func (c *atomicCounter) inc() int64 { return c.n.Add(1) }

// probe builds a provider from pc and runs a single health check against it.
func probe(ctx context.Context, name string, pc providers.ProviderConfig) checkResult {
	res := checkResult{Provider: name, Type: pc.Type}

	p, err := providerfactory.NewProvider(pc)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(ctx, providersFlags.timeout)
	defer cancel()

	start := time.Now()
	err = p.HealthCheck(ctx)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}
