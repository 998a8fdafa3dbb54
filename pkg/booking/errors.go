package booking

import (
	"errors"
	"fmt"
)

// Validation errors: the request is malformed and nothing was changed.
var (
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidHotelID         = errors.New("invalid hotel id")
	ErrInvalidRoomTypeID      = errors.New("invalid room type id")
	ErrInvalidRoomID          = errors.New("invalid room id")
	ErrInvalidFacilityID      = errors.New("invalid facility id")
	ErrInvalidReservationID   = errors.New("invalid reservation id")
	ErrInvalidReviewID        = errors.New("invalid review id")
	ErrInvalidMoney           = errors.New("invalid money amount")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidStayRange       = errors.New("check-out must be after check-in")
	ErrCheckInInPast          = errors.New("check-in must not be in the past")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
	ErrInvalidStarRating      = errors.New("star rating must be between 0 and 5")
	ErrInvalidStatus          = errors.New("invalid reservation status")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidRegion          = errors.New("invalid region")
	ErrInvalidGender          = errors.New("invalid gender")
	ErrInvalidPhone           = errors.New("phone must contain digits only")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrInvalidName            = errors.New("invalid name")
	ErrInvalidUsername        = errors.New("invalid username")
	ErrInvalidPassword        = errors.New("invalid password")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrInvalidRoomNumber      = errors.New("invalid room number")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
	ErrMissingRoom            = errors.New("room is required")
	ErrMissingFile            = errors.New("file is required")
	ErrEmptyTransitionRequest = errors.New("no reservations selected")
)

// Business-rule errors: the request is well formed but conflicts with current state.
var (
	ErrRoomUnavailable       = errors.New("room is not available for the requested dates")
	ErrRoomNotOffered        = errors.New("room is not offered for booking")
	ErrDuplicateRoomNumber   = errors.New("room number already exists in this hotel")
	ErrForbiddenTransition   = errors.New("forbidden status transition")
	ErrStatusConflict        = errors.New("reservation status changed concurrently")
	ErrReservationLocked     = errors.New("only pending reservations can be changed")
	ErrReviewNotAllowed      = errors.New("reviews require a checked-out reservation")
	ErrReviewExists          = errors.New("reservation already reviewed")
	ErrPaymentAlreadyPaid    = errors.New("payment already recorded")
	ErrDuplicateUsername     = errors.New("username already used")
	ErrDuplicateEmail        = errors.New("email already used")
	ErrRoomTypeHotelMismatch = errors.New("room type belongs to another hotel")
	ErrRoomHotelChange       = errors.New("room cannot move to another hotel")
)

// Not-found and access errors.
var (
	ErrUnknownUser        = errors.New("unknown user")
	ErrUnknownHotel       = errors.New("unknown hotel")
	ErrUnknownRoomType    = errors.New("unknown room type")
	ErrUnknownRoom        = errors.New("unknown room")
	ErrUnknownFacility    = errors.New("unknown facility")
	ErrUnknownReservation = errors.New("unknown reservation")
	ErrUnknownPayment     = errors.New("unknown payment")
	ErrUnknownReview      = errors.New("unknown review")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("staff access required")
)

// Collaborator errors never abort the operation that triggered them.
var (
	ErrNotificationFailed = errors.New("notification failed")
	ErrBlobStoreFailed    = errors.New("blob store failed")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// FieldError reports a validation failure bound to a single form field.
type FieldError struct {
	Field string
	Err   error
}

func (fieldError FieldError) Error() string {
	return fmt.Sprintf("%s: %v", fieldError.Field, fieldError.Err)
}

func (fieldError FieldError) Unwrap() error {
	return fieldError.Err
}

// ValidationErrors collects every field failure of a submitted form.
type ValidationErrors []FieldError

func (validationErrors ValidationErrors) Error() string {
	if len(validationErrors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %v", validationErrors[0])
}

// Unwrap exposes the individual field errors to errors.Is.
func (validationErrors ValidationErrors) Unwrap() []error {
	unwrapped := make([]error, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		unwrapped = append(unwrapped, fieldError)
	}
	return unwrapped
}

// Fields flattens the errors into a field -> message map.
func (validationErrors ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(validationErrors))
	for _, fieldError := range validationErrors {
		if _, exists := fields[fieldError.Field]; !exists {
			fields[fieldError.Field] = fieldError.Err.Error()
		}
	}
	return fields
}

func (validationErrors *ValidationErrors) add(field string, err error) {
	if err == nil {
		return
	}
	*validationErrors = append(*validationErrors, FieldError{Field: field, Err: err})
}

func (validationErrors ValidationErrors) orNil() error {
	if len(validationErrors) == 0 {
		return nil
	}
	return validationErrors
}
