// SPDX-License-Identifier: BSD-3-Clause

package hwmonrepo

import "errors"

var (
	// ErrUnknownDevice indicates a settings call named a device id this
	// repository does not own.
	ErrUnknownDevice = errors.New("unknown hwmon device")
	// ErrUnknownChannel indicates a settings call named a pwm channel
	// that was not discovered on the device.
	ErrUnknownChannel = errors.New("unknown hwmon channel")
)
