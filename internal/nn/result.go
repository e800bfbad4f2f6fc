package nn

// Result is the outcome of an operation, kept for callers that expect a
// success flag instead of an error.
type Result int

// Results.
const (
	Failed Result = iota
	Success
)

// ResultOf returns Success for a nil error and Failed otherwise.
func ResultOf(err error) Result {
	if err != nil {
		return Failed
	}
	return Success
}

func (r Result) String() string {
	if r == Success {
		return "BRAIN_SUCCESS"
	}
	return "BRAIN_FAILED"
}
