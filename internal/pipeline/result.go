package pipeline

// Result is the tagged outcome of one step execution attempt. A nil Err
// means the attempt succeeded. Recoverable=false tells the driver retrying
// is pointless regardless of the step's retry policy.
type Result struct {
	Data        map[string]any
	Err         error
	Recoverable bool
}

// Ok builds a successful result. The data map may be nil.
func Ok(data map[string]any) Result {
	return Result{Data: data}
}

// Fail builds a recoverable failure: the driver may retry the step up to
// its configured limit.
func Fail(err error) Result {
	return Result{Err: err, Recoverable: true}
}

// FailPermanent builds a non-recoverable failure: the driver fails the step
// immediately, ignoring its retry policy.
func FailPermanent(err error) Result {
	return Result{Err: err, Recoverable: false}
}
