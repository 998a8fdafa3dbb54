package booking

import (
	"context"
	"fmt"
)

// ServiceOption configures a Service, Catalog or Accounts instance.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger         OperationLogger
	notifier       Notifier
	currencyPlaces int32
}

// OperationLogger records domain-level events emitted by service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing operation.
type OperationLog struct {
	Operation     string
	Actor         string
	ReservationID ReservationID
	RoomID        RoomID
	HotelID       HotelID
	UserID        UserID
	Status        string
	Detail        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(options *serviceOptions) {
		options.logger = logger
	}
}

// WithNotifier wires the outbound email collaborator.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(options *serviceOptions) {
		options.notifier = notifier
	}
}

// WithCurrencyPlaces sets how many decimal places persisted totals keep (2 or 3).
func WithCurrencyPlaces(places int32) ServiceOption {
	return func(options *serviceOptions) {
		options.currencyPlaces = places
	}
}

func buildOptions(options []ServiceOption) (serviceOptions, error) {
	resolved := serviceOptions{currencyPlaces: defaultCurrencyPlaces}
	for _, option := range options {
		if option != nil {
			option(&resolved)
		}
	}
	if resolved.currencyPlaces < minCurrencyPlaces || resolved.currencyPlaces > maxCurrencyPlaces {
		return serviceOptions{}, WrapError(operationConfigure, subjectService, "currency_places", ErrInvalidServiceConfig)
	}
	return resolved, nil
}

func (options serviceOptions) logOperation(ctx context.Context, entry OperationLog) {
	if options.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = OperationStatusError
		} else {
			entry.Status = OperationStatusOK
		}
	}
	options.logger.LogOperation(ctx, entry)
}

// notify is fire-and-forget: a delivery failure is logged as a warning and swallowed.
func (options serviceOptions) notify(ctx context.Context, operation string, message Message, entry OperationLog) {
	if options.notifier == nil || message.To == "" {
		return
	}
	if err := options.notifier.Notify(ctx, message); err != nil {
		entry.Operation = operation
		entry.Status = OperationStatusWarning
		entry.Detail = "notification not delivered"
		entry.Error = WrapError(operation, subjectNotification, "send", fmt.Errorf("%w: %w", ErrNotificationFailed, err))
		options.logOperation(ctx, entry)
	}
}
