// File: api/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transfer outcome codes. Completion results are data, not Go errors: every
// launched transfer funnels into exactly one completion callback carrying a
// single ResultCode, whether it finished, failed inside the engine, was
// rejected at registration, or was cancelled.

package api

import "fmt"

// ResultCode is the single result value delivered to a transfer's completion
// callback. Codes at or above ResultEngineError are engine-specific and pass
// through the bridge unchanged.
type ResultCode int32

const (
	// ResultOK means the transfer finished successfully.
	ResultOK ResultCode = iota
	// ResultAgain means the engine refused the registration, typically due
	// to resource exhaustion; the transfer was never tracked.
	ResultAgain
	// ResultCanceled means the transfer was cancelled explicitly via
	// CancelOne or CancelAll.
	ResultCanceled
	// ResultShutdown means the transfer was force-completed because its
	// bridge was closed while the transfer was still pending.
	ResultShutdown
	// ResultEngineError is the first engine-level failure code. Engines may
	// report any code >= ResultEngineError for transfer-level errors.
	ResultEngineError
)

// Success reports whether the code denotes a successful transfer.
func (c ResultCode) Success() bool { return c == ResultOK }

// Canceled reports whether the code denotes any form of cancellation.
func (c ResultCode) Canceled() bool { return c == ResultCanceled || c == ResultShutdown }

func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "ok"
	case ResultAgain:
		return "again"
	case ResultCanceled:
		return "canceled"
	case ResultShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("engine(%d)", int32(c))
	}
}
