// SPDX-License-Identifier: BSD-3-Clause

package cpurepo

// Default configuration values for the CPU Repository.
const (
	DefaultRepositoryName = "cpurepo"
	DefaultHwmonBasePath  = "/sys/class/hwmon"
	DefaultProcStatPath   = "/proc/stat"
)

// preferredDrivers is tried in order; the first hwmon device matching one
// of these driver names is used as the CPU's temperature source.
var preferredDrivers = []string{"thinkpad", "k10temp", "coretemp", "zenpower"}

// preferredLabels is tried in order within the chosen device; the first
// sensor whose label contains one of these substrings (case-insensitive)
// becomes the reported CPU temperature.
var preferredLabels = []string{"cpu", "tctl", "physical", "package", "tdie"}

type config struct {
	name     string
	basePath string
	procStat string
}

func defaultConfig() *config {
	return &config{
		name:     DefaultRepositoryName,
		basePath: DefaultHwmonBasePath,
		procStat: DefaultProcStatPath,
	}
}

// Option configures a Repository instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithBasePath overrides the hwmon sysfs root, mainly for tests.
func WithBasePath(path string) Option {
	return funcOption(func(c *config) { c.basePath = path })
}

// WithProcStatPath overrides the /proc/stat path used for load percent,
// mainly for tests.
func WithProcStatPath(path string) Option {
	return funcOption(func(c *config) { c.procStat = path })
}
