package audit

import (
	"context"
	"errors"
	"time"
)

// ErrWriteFailed indicates the durable audit write did not succeed. The
// business mutation that triggered the record is not rolled back; callers
// report the gap and continue.
var ErrWriteFailed = errors.New("audit: write failed")

// Query filters a window of the audit log, newest first.
type Query struct {
	Actor  int64
	Action string
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

// Store persists and queries audit records. There is deliberately no update
// or delete operation.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	List(ctx context.Context, q Query) ([]Record, error)
}
