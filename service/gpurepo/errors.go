// SPDX-License-Identifier: BSD-3-Clause

package gpurepo

import "errors"

var (
	// ErrNVMLUnavailable indicates NVML could not be initialized, typically
	// because no NVIDIA driver is loaded on this host.
	ErrNVMLUnavailable = errors.New("gpurepo: NVML unavailable")
	// ErrUnknownDevice indicates a settings call named a device id this
	// repository does not own.
	ErrUnknownDevice = errors.New("gpurepo: unknown gpu device")
	// ErrUnknownChannel indicates a settings call named a fan channel that
	// was not discovered on the device.
	ErrUnknownChannel = errors.New("gpurepo: unknown fan channel")
	// ErrFanControlUnsupported indicates the driver rejected a manual or
	// automatic fan policy change for this GPU.
	ErrFanControlUnsupported = errors.New("gpurepo: fan control not supported")
)
