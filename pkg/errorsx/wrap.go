package errorsx

import "errors"

// ReasonedError tags an error with a stable machine-readable reason code
// so channel adapters can classify pipeline failures without string
// matching.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e *ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e *ReasonedError) Unwrap() error { return e.Err }

// Wrap attaches reason to err. An existing reason wins: the first
// classification, closest to the failure, is the accurate one.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	if reasoned(err) != nil {
		return err
	}
	return &ReasonedError{Err: err, Reason: reason}
}

// Reason reports the reason code carried anywhere in err's chain.
func Reason(err error) ReasonCode {
	if re := reasoned(err); re != nil {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries reason.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

func reasoned(err error) *ReasonedError {
	var re *ReasonedError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
