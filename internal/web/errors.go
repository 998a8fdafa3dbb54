package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	errorCodeInvalidInput = "invalid_input"
	errorCodeNotFound     = "not_found"
	errorCodeInternal     = "internal_error"
)

var (
	registerValidatorsOnce sync.Once
	registerValidatorsErr  error
)

// registerValidators adds the `digits` tag and reports fields by their wire names.
func registerValidators() error {
	registerValidatorsOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(wireFieldName)
		registerValidatorsErr = engine.RegisterValidation("digits", func(field validator.FieldLevel) bool {
			return booking.IsDigits(field.Field().String())
		})
	})
	return registerValidatorsErr
}

func wireFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{booking.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{booking.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{booking.ErrForbidden, http.StatusForbidden, "forbidden"},

	{booking.ErrRoomUnavailable, http.StatusConflict, "room_unavailable"},
	{booking.ErrDuplicateRoomNumber, http.StatusConflict, "duplicate_room_number"},
	{booking.ErrForbiddenTransition, http.StatusConflict, "forbidden_transition"},
	{booking.ErrStatusConflict, http.StatusConflict, "status_conflict"},
	{booking.ErrReservationLocked, http.StatusConflict, "reservation_locked"},
	{booking.ErrReviewNotAllowed, http.StatusConflict, "review_not_allowed"},
	{booking.ErrReviewExists, http.StatusConflict, "review_exists"},
	{booking.ErrPaymentAlreadyPaid, http.StatusConflict, "payment_already_recorded"},
	{booking.ErrDuplicateUsername, http.StatusConflict, "username_taken"},
	{booking.ErrDuplicateEmail, http.StatusConflict, "email_taken"},
	{booking.ErrRoomTypeHotelMismatch, http.StatusConflict, "room_type_mismatch"},
	{booking.ErrRoomHotelChange, http.StatusConflict, "room_hotel_change"},

	{booking.ErrUnknownUser, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownHotel, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownRoomType, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownRoom, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownFacility, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownReservation, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownPayment, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrUnknownReview, http.StatusNotFound, errorCodeNotFound},
	{blob.ErrNotFound, http.StatusNotFound, errorCodeNotFound},

	{blob.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{blob.ErrUnsupportedType, http.StatusUnsupportedMediaType, "unsupported_file_type"},
	{blob.ErrEmptyUpload, http.StatusUnprocessableEntity, errorCodeInvalidInput},
	{blob.ErrInvalidRef, http.StatusNotFound, errorCodeNotFound},

	{booking.ErrInvalidHotelID, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrInvalidRoomTypeID, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrInvalidRoomID, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrInvalidReservationID, http.StatusNotFound, errorCodeNotFound},
	{booking.ErrInvalidReviewID, http.StatusNotFound, errorCodeNotFound},
}

// respondError maps domain failures onto HTTP. Not-found responses carry one fixed
// message so callers cannot tell a missing record from someone else's.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	var validationErrors booking.ValidationErrors
	if errors.As(err, &validationErrors) {
		ctx.JSON(http.StatusUnprocessableEntity, fieldErrorResponse(validationErrors.Fields()))
		return
	}
	var bindingErrors validator.ValidationErrors
	if errors.As(err, &bindingErrors) {
		fields := make(map[string]string, len(bindingErrors))
		for _, fieldError := range bindingErrors {
			fields[fieldError.Field()] = bindingMessage(fieldError)
		}
		ctx.JSON(http.StatusUnprocessableEntity, fieldErrorResponse(fields))
		return
	}
	for _, mapping := range errorMappings {
		if !errors.Is(err, mapping.target) {
			continue
		}
		message := rootMessage(err, mapping.target)
		if mapping.code == errorCodeNotFound {
			message = "not found"
		}
		ctx.JSON(mapping.status, errorResponse(mapping.code, message))
		return
	}
	if isValidationSentinel(err) {
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse(errorCodeInvalidInput, err.Error()))
		return
	}
	handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse(errorCodeInternal, "internal error"))
}

func fieldErrorResponse(fields map[string]string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    errorCodeInvalidInput,
			"message": "validation failed",
			"fields":  fields,
		},
	}
}

// rootMessage hides operation prefixes such as "create_reservation.reservation.create: ".
func rootMessage(err error, target error) string {
	var operationError booking.OperationError
	if errors.As(err, &operationError) && operationError.Unwrap() != nil {
		return operationError.Unwrap().Error()
	}
	return target.Error()
}

var validationSentinels = []error{
	booking.ErrInvalidUserID,
	booking.ErrInvalidFacilityID,
	booking.ErrInvalidMoney,
	booking.ErrInvalidPrice,
	booking.ErrInvalidDate,
	booking.ErrInvalidStayRange,
	booking.ErrCheckInInPast,
	booking.ErrInvalidRating,
	booking.ErrInvalidStarRating,
	booking.ErrInvalidStatus,
	booking.ErrInvalidPaymentMethod,
	booking.ErrInvalidRegion,
	booking.ErrInvalidGender,
	booking.ErrInvalidPhone,
	booking.ErrInvalidEmail,
	booking.ErrInvalidName,
	booking.ErrInvalidUsername,
	booking.ErrInvalidPassword,
	booking.ErrPasswordMismatch,
	booking.ErrInvalidRoomNumber,
	booking.ErrMissingRoom,
	booking.ErrMissingFile,
	booking.ErrEmptyTransitionRequest,
	booking.ErrRoomNotOffered,
	errMalformedBody,
}

func isValidationSentinel(err error) bool {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func bindingMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "this field is required"
	case "digits":
		return booking.ErrInvalidPhone.Error()
	case "email":
		return booking.ErrInvalidEmail.Error()
	case "max":
		return "must be at most " + fieldError.Param() + " characters"
	case "min":
		return "must be at least " + fieldError.Param()
	case "oneof":
		return "must be one of " + fieldError.Param()
	default:
		return "is invalid"
	}
}
