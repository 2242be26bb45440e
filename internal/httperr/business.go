package httperr

import "errors"

type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// Code returns the business code carried by err, or "" when err is not a
// BusinessError.
func Code(err error) string {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// ======================================================
// Sentinels
// ======================================================
//
// Wrap them with fmt.Errorf("%w: ...") to add context; errors.Is still
// matches because BusinessError is comparable.

var (
	ErrInvalidTransition      = BusinessError{Code: "invalid_transition"}
	ErrSlotUnavailable        = BusinessError{Code: "slot_unavailable"}
	ErrTimeConflict           = BusinessError{Code: "time_conflict"}
	ErrAppealWindowExpired    = BusinessError{Code: "appeal_window_expired"}
	ErrInsufficientFunds      = BusinessError{Code: "insufficient_funds"}
	ErrExternalServiceFailure = BusinessError{Code: "external_service_failure"}

	ErrNotFound         = BusinessError{Code: "not_found"}
	ErrForbidden        = BusinessError{Code: "forbidden"}
	ErrConcurrentUpdate = BusinessError{Code: "concurrent_update"}
	ErrInvalidAmount    = BusinessError{Code: "invalid_amount"}
	ErrInvalidInput     = BusinessError{Code: "invalid_input"}
)
