package combine

import "errors"

var (
	// ErrNoUsableData reports a finalize call for which no segment passed
	// quality flagging, or for which notching removed all in-band weight.
	ErrNoUsableData = errors.New("no usable data: zero accumulated weight in the requested band")

	errAxisMismatch = errors.New("frequency axis mismatch")
)
