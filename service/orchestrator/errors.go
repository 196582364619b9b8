// SPDX-License-Identifier: BSD-3-Clause

package orchestrator

import "errors"

var (
	// ErrNameEmpty indicates that the orchestrator name cannot be empty.
	ErrNameEmpty = errors.New("orchestrator name cannot be empty")
	// ErrIPCBusNil indicates that no IPC bus is configured and no external
	// connection was supplied to Run.
	ErrIPCBusNil = errors.New("ipc bus not configured: provide either ipcConn or WithIPCBus option")
	// ErrAddProcess indicates that adding a process to the supervision tree
	// failed.
	ErrAddProcess = errors.New("failed to add process to supervision tree")
	// ErrAddExtraService indicates that adding an extra service failed.
	ErrAddExtraService = errors.New("failed to add extra service to supervision tree")
	// ErrPanicked indicates that the orchestrator panicked during execution.
	ErrPanicked = errors.New("orchestrator panicked")
)
