// SPDX-License-Identifier: BSD-3-Clause

package statuspoller

import "errors"

// ErrNoRepositories indicates a Poller was constructed with no repositories
// to poll.
var ErrNoRepositories = errors.New("statuspoller: no repositories configured")
