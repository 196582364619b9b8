// SPDX-License-Identifier: BSD-3-Clause

package coolingrepo

import "time"

// Default configuration values for the Cooling-lib Repository.
const (
	DefaultRepositoryName = "coolingrepo"
	DefaultBackendSocket  = "/run/coolerd-backend.sock"
	DefaultMinDuty        = 0
	DefaultMaxDuty        = 100
	DefaultMinProfileLen  = 2
	DefaultMaxProfileLen  = 17
	DefaultRequestTimeout = 10 * time.Second
)

// displayColors is a small fixed palette assigned to devices in discovery
// order, mirroring how a GUI picks a stable per-device accent color.
var displayColors = []string{"#3498db", "#e74c3c", "#2ecc71", "#f1c40f", "#9b59b6", "#1abc9c"}

type config struct {
	name           string
	backendSocket  string
	requestTimeout time.Duration
}

func defaultConfig() *config {
	return &config{
		name:           DefaultRepositoryName,
		backendSocket:  DefaultBackendSocket,
		requestTimeout: DefaultRequestTimeout,
	}
}

// Option configures a Repository instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithBackendSocket overrides the Cooling-lib Backend socket path.
func WithBackendSocket(path string) Option {
	return funcOption(func(c *config) { c.backendSocket = path })
}

// WithRequestTimeout overrides the per-request timeout used for backend
// calls that are not themselves the status read protocol.
func WithRequestTimeout(d time.Duration) Option {
	return funcOption(func(c *config) { c.requestTimeout = d })
}
