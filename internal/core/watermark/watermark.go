// Package watermark owns the incremental-load position of the connector.
//
// The watermark is the last time boundary whose primary dataset was fetched
// and delivered. It is read at the start of every cycle and written only
// after the primary dataset of that cycle succeeded:
//
//	mgr := watermark.NewManager(repo)
//
//	last, ok := mgr.Read(ctx)          // ok == false on cold start
//	...fetch, extract, send...
//	err := mgr.Advance(ctx, newMark)   // refuses to move backwards
//
// Read never fails: a missing or unparseable value is logged and treated as a
// cold start. Advance is stricter: a load failure other than "not found" is
// returned and nothing is written. Write failures are returned as *IOError so
// the caller can log them and carry on; the next cycle then re-reads the
// previous value.
package watermark

import (
	"errors"
	"fmt"
)

var (
	// ErrWatermarkRegression is returned when Advance would move backwards.
	ErrWatermarkRegression = errors.New("watermark regression")
)

// IOError wraps a failure to load or persist the watermark.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("watermark %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
