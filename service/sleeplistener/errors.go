// SPDX-License-Identifier: BSD-3-Clause

package sleeplistener

import "errors"

// ErrDBusConnectFailed indicates the system D-Bus connection could not be
// established.
var ErrDBusConnectFailed = errors.New("sleeplistener: failed to connect to system bus")

// ErrAddMatchFailed indicates the login1 PrepareForSleep signal match could
// not be registered.
var ErrAddMatchFailed = errors.New("sleeplistener: failed to subscribe to login1 signals")
