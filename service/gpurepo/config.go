// SPDX-License-Identifier: BSD-3-Clause

package gpurepo

// DefaultRepositoryName is the default reposcommon.Repository.Name().
const DefaultRepositoryName = "gpurepo"

type config struct {
	name string
}

func defaultConfig() *config {
	return &config{name: DefaultRepositoryName}
}

// Option configures a Repository instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithName overrides the repository's registration name, mainly for tests.
func WithName(name string) Option {
	return funcOption(func(c *config) { c.name = name })
}
