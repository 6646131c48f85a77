package record

// Result is the envelope the JSON API returns. OK distinguishes "computed
// nothing" from "failed": a metric with no samples is still OK with empty
// data, while Err is set only when a precondition or upstream call failed.
type Result[T any] struct {
	OK   bool   `json:"success"`
	Data T      `json:"data,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Ok wraps data in a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

// Fail builds a failed result carrying the error message.
func Fail[T any](err error) Result[T] {
	return Result[T]{OK: false, Err: err.Error()}
}
