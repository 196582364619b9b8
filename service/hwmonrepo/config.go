// SPDX-License-Identifier: BSD-3-Clause

package hwmonrepo

// Default configuration values for the Hwmon Repository.
const (
	DefaultRepositoryName = "hwmonrepo"
	DefaultHIDSocketPath  = "/run/coolerd/coolerod.sock"
	DefaultHwmonBasePath  = "/sys/class/hwmon"

	// fans reporting rpm=0 with pwm above this threshold are assumed
	// unconnected when the hwmon filter is enabled.
	DefaultUnconnectedPWMThreshold = 25
	DefaultMinReasonableTempC      = 0
	DefaultMaxReasonableTempC      = 100
)

// laptopDrivers force pwm_enable_default=2 (automatic) regardless of the
// observed value, and are exempt from the unconnected-fan filter.
var laptopDrivers = map[string]bool{
	"thinkpad":    true,
	"asus-nb-wmi": true,
	"asus_fan":    true,
}

type config struct {
	name            string
	hidSocketPath   string
	basePath        string
	enableFilter    bool
	ownedByCooling  map[string]bool
	cpuOwnedSensors map[string]bool
}

func defaultConfig() *config {
	return &config{
		name:          DefaultRepositoryName,
		hidSocketPath: DefaultHIDSocketPath,
		basePath:      DefaultHwmonBasePath,
		enableFilter:  true,
	}
}

// Option configures a Repository instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithHIDSocketPath overrides the HID Daemon socket path used for writes.
func WithHIDSocketPath(path string) Option {
	return funcOption(func(c *config) { c.hidSocketPath = path })
}

// WithBasePath overrides the hwmon sysfs root, mainly for tests.
func WithBasePath(path string) Option {
	return funcOption(func(c *config) { c.basePath = path })
}

// WithFilterEnabled toggles the unconnected-fan heuristic filter
// (enable_hwmon_filter).
func WithFilterEnabled(enabled bool) Option {
	return funcOption(func(c *config) { c.enableFilter = enabled })
}

// WithExcludedDrivers marks driver names already covered by the Cooling-lib
// Repository so their hwmon entries are skipped.
func WithExcludedDrivers(names ...string) Option {
	return funcOption(func(c *config) {
		if c.ownedByCooling == nil {
			c.ownedByCooling = make(map[string]bool)
		}
		for _, n := range names {
			c.ownedByCooling[n] = true
		}
	})
}

// WithCPUOwnedSensors marks sensor labels owned by the CPU Repository so
// they are skipped here unless the user opts in (enable_hwmon_temps).
func WithCPUOwnedSensors(labels ...string) Option {
	return funcOption(func(c *config) {
		if c.cpuOwnedSensors == nil {
			c.cpuOwnedSensors = make(map[string]bool)
		}
		for _, l := range labels {
			c.cpuOwnedSensors[l] = true
		}
	})
}
