// Package businessflow contains the core business logic and use cases for promo targeting and dispatch
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Audience filter errors
	ErrInvalidRange       = errors.New("invalid filter range")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrNoCustomersMatched = errors.New("no customers matched the selected filters")

	// Campaign errors
	ErrMessageRequired      = errors.New("message is required")
	ErrCampaignRunNotFound  = errors.New("campaign run not found")
	ErrScheduleTimeTooSoon  = errors.New("schedule time is too soon")
	ErrCampaignRunNotDue    = errors.New("campaign run is not due")
	ErrTemplateKeyExhausted = errors.New("no free template key available")

	// Staff errors
	ErrActorRequired     = errors.New("authenticated staff member is required")
	ErrStaffNotFound     = errors.New("staff member not found")
	ErrStaffInactive     = errors.New("staff account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Template errors
	ErrTemplateNotFound   = errors.New("sms template not found")
	ErrTemplateKeyExists  = errors.New("sms template key already exists")
	ErrTemplateKeyInvalid = errors.New("sms template key is invalid")
	ErrTemplateUpdateNone = errors.New("at least one field must be provided for update")

	// Pagination errors
	ErrInvalidPage     = errors.New("invalid page")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// BusinessError represents a business logic error with additional context
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// AsBusinessError extracts the outermost BusinessError from err
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsInvalidRange(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}

func IsInvalidPlatform(err error) bool {
	return errors.Is(err, ErrInvalidPlatform)
}

func IsNoCustomersMatched(err error) bool {
	return errors.Is(err, ErrNoCustomersMatched)
}

func IsMessageRequired(err error) bool {
	return errors.Is(err, ErrMessageRequired)
}

func IsCampaignRunNotFound(err error) bool {
	return errors.Is(err, ErrCampaignRunNotFound)
}

func IsScheduleTimeTooSoon(err error) bool {
	return errors.Is(err, ErrScheduleTimeTooSoon)
}

func IsCampaignRunNotDue(err error) bool {
	return errors.Is(err, ErrCampaignRunNotDue)
}

func IsActorRequired(err error) bool {
	return errors.Is(err, ErrActorRequired)
}

func IsStaffNotFound(err error) bool {
	return errors.Is(err, ErrStaffNotFound)
}

func IsStaffInactive(err error) bool {
	return errors.Is(err, ErrStaffInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateKeyExists(err error) bool {
	return errors.Is(err, ErrTemplateKeyExists)
}

func IsTemplateKeyInvalid(err error) bool {
	return errors.Is(err, ErrTemplateKeyInvalid)
}

func IsTemplateUpdateNone(err error) bool {
	return errors.Is(err, ErrTemplateUpdateNone)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
