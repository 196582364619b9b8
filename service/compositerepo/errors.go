// SPDX-License-Identifier: BSD-3-Clause

package compositerepo

import "errors"

// ErrNotWritable indicates a write was attempted against the Composite
// Repository, which exposes only synthesized, read-only temperatures.
var ErrNotWritable = errors.New("composite repository channels are read-only")
