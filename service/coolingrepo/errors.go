// SPDX-License-Identifier: BSD-3-Clause

package coolingrepo

import "errors"

var (
	// ErrLegacyFirmware indicates a profile write was refused because the
	// device reports a firmware version too old to accept server-side
	// speed profiles.
	ErrLegacyFirmware = errors.New("cooling device firmware too old for profile writes")
	// ErrUnknownDevice indicates a settings call named a device id this
	// repository does not own.
	ErrUnknownDevice = errors.New("unknown cooling device")
	// ErrProfileLength indicates a profile write fell outside the
	// device's driver-specific min/max profile length.
	ErrProfileLength = errors.New("profile length outside device bounds")
)
