package app

import "time"

// Operation tracks one CLI command from start to finish. Its ID tags every
// log line written while it runs.
type Operation struct {
	ID         string
	Operation  string
	Parameters string
	StartedAt  time.Time
	Status     string // "success" or "error"
	Err        error
}

// NewOperation creates an operation started at now.
func NewOperation(operation, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  now,
		Status:     "success",
	}
}

// Fail marks the operation as failed. The first error is kept.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = "error"
	if op.Err == nil {
		op.Err = err
	}
}

// Failed returns true if Fail was called with a non-nil error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
