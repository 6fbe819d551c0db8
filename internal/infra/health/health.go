package health

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	return &Checker{deps: make(map[string]Pinger), timeout: timeout}
}

// Add registers a dependency; call before the checker is shared.
func (c *Checker) Add(name string, p Pinger) *Checker {
	c.deps[name] = p
	return c
}

type Report struct {
	Healthy bool              `json:"healthy"`
	Deps    map[string]string `json:"deps"`
}

// Check pings every dependency concurrently under one deadline.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.deps))
	for n := range c.deps {
		names = append(names, n)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var g errgroup.Group
	for i, n := range names {
		i, n := i, n
		g.Go(func() error {
			results[i] = c.deps[n].Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Healthy: true, Deps: make(map[string]string, len(names))}
	for i, n := range names {
		if results[i] != nil {
			rep.Healthy = false
			rep.Deps[n] = results[i].Error()
			continue
		}
		rep.Deps[n] = "ok"
	}
	return rep
}
