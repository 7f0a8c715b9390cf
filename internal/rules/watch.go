package rules

import (
	"context"
	"os"
	"sync/atomic"
	"time"
)

// Provider hands out the current rule set. Reads are lock-free; the watcher
// swaps in a freshly loaded set when the rules file changes.
type Provider struct {
	current atomic.Pointer[RuleSet]
}

// NewProvider creates a provider seeded with rs.
func NewProvider(rs *RuleSet) *Provider {
	p := &Provider{}
	p.current.Store(rs)
	return p
}

// Current returns the active rule set. The returned value must be treated as
// immutable.
func (p *Provider) Current() *RuleSet {
	return p.current.Load()
}

// Swap replaces the active rule set.
func (p *Provider) Swap(rs *RuleSet) {
	p.current.Store(rs)
}

// Watch reloads the rules file on change and swaps it into the provider.
// It performs an initial load before entering the watch loop; load errors
// after startup keep the previous rule set and are reported via onError.
func Watch(ctx context.Context, path string, interval time.Duration, p *Provider, onError func(error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	rs, err := Load(path)
	if err != nil {
		return err
	}
	p.Swap(rs)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				rs, err := Load(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				lastMod = info.ModTime()
				p.Swap(rs)
			}
		}
	}()

	return nil
}
