package dataset

import "fmt"

// Kind classifies data access failures so the boundary can choose between
// not-found and unprocessable responses.
type Kind int

const (
	// KindNotFound means the dataset or its partitions exist nowhere we
	// looked, locally or remotely.
	KindNotFound Kind = iota + 1
	// KindBadData means data exists but cannot be read as the expected
	// shape.
	KindBadData
)

// Error is a data access failure. Messages name the dataset but never
// filesystem paths; the wrapped error is for logs.
type Error struct {
	Kind    Kind
	Dataset string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Dataset == "" {
		return e.Message
	}
	return fmt.Sprintf("dataset %s: %s", e.Dataset, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func notFound(d Domain, msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Dataset: string(d), Message: msg, Err: err}
}

func badData(d Domain, msg string, err error) *Error {
	return &Error{Kind: KindBadData, Dataset: string(d), Message: msg, Err: err}
}
