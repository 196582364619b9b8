// SPDX-License-Identifier: BSD-3-Clause

package statuspoller

import "time"

// Default configuration values for the Status Poller.
const (
	DefaultServiceName  = "statuspoller"
	DefaultTickInterval = time.Second
)

type config struct {
	name         string
	tickInterval time.Duration
}

func defaultConfig() *config {
	return &config{
		name:         DefaultServiceName,
		tickInterval: DefaultTickInterval,
	}
}

// Option configures a Poller instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithName overrides the service's registration name.
func WithName(name string) Option {
	return funcOption(func(c *config) { c.name = name })
}

// WithTickInterval overrides the polling period, default 1Hz.
func WithTickInterval(d time.Duration) Option {
	return funcOption(func(c *config) { c.tickInterval = d })
}
