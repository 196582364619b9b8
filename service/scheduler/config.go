// SPDX-License-Identifier: BSD-3-Clause

package scheduler

import "time"

// Default configuration values for the Speed Scheduler.
const (
	DefaultServiceName      = "scheduler"
	DefaultMinApplyInterval = 2 * time.Second
)

type config struct {
	name             string
	minApplyInterval time.Duration
}

func defaultConfig() *config {
	return &config{
		name:             DefaultServiceName,
		minApplyInterval: DefaultMinApplyInterval,
	}
}

// Option configures a Scheduler instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithName overrides the service's registration name.
func WithName(name string) Option {
	return funcOption(func(c *config) { c.name = name })
}

// WithMinApplyInterval overrides the minimum spacing between two applied
// settings on the same channel, damping PWM chatter from noisy curves.
func WithMinApplyInterval(d time.Duration) Option {
	return funcOption(func(c *config) { c.minApplyInterval = d })
}
