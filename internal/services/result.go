package services

// Status tags the outcome of a tweet operation that did not fail outright.
type Status int

const (
	// StatusOK means the operation was applied and Value holds its result.
	StatusOK Status = iota
	// StatusDenied means the caller is not the user named in the request.
	StatusDenied
	// StatusNotFound means no tweet matched the request.
	StatusNotFound
	// StatusInvalid means the input was rejected before reaching storage.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDenied:
		return "denied"
	case StatusNotFound:
		return "not_found"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result carries an operation value together with its Status. Value is the
// zero value of T (or an empty slice for listings) unless Status is StatusOK.
// When an operation also returns a non-nil error the Result must be ignored.
type Result[T any] struct {
	Value  T
	Status Status
}

// OK reports whether the operation was applied.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func withStatus[T any](v T, s Status) Result[T] {
	return Result[T]{Value: v, Status: s}
}
