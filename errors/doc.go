// Package errors provides standardized error handling for runtime tasks.
//
// # Overview
//
// The package implements a three-class error classification system for a
// long-running vehicle runtime: Transient (temporary, loop continues),
// Invalid (bad input or configuration, do not retry), and Fatal
// (unrecoverable, the owning task must release resources and restart).
//
// Classification drives the runtime failure policy:
//
//   - Transient: a single failed serial read or write is logged and the
//     main loop continues with no state change.
//   - Invalid: a missing or out-of-range parameter is fatal to the task at
//     startup and never retried.
//   - Fatal: a device open or handshake failure rolls back everything
//     acquired so far and requests a delayed task restart.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format "component.method: action failed: %w":
//
//	if err := uart.Open(); err != nil {
//	    return errors.WrapFatal(err, "amc", "OnResourceAcquisition", "open serial port")
//	}
//
// Classification is preserved through error chains and integrates with
// errors.Is, errors.As and Unwrap from the standard library.
package errors
