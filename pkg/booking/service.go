package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// ReservationRequest is a validated booking form.
type ReservationRequest struct {
	HotelID        HotelID
	RoomID         RoomID
	Stay           StayRange
	Guest          GuestContact
	SpecialRequest string
}

// PaymentSubmission is the guest's payment form.
type PaymentSubmission struct {
	Method   PaymentMethod
	ProofRef string
}

// Service contains the reservation, payment and review logic over a Store.
type Service struct {
	store   Store
	nowFn   func() time.Time
	options serviceOptions
}

// NewService wires a Service.
func NewService(store Store, clock func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved, err := buildOptions(options)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, nowFn: clock, options: resolved}, nil
}

// QuotePrice prices a stay in the given room without booking it.
func (service *Service) QuotePrice(ctx context.Context, roomID RoomID, stay StayRange) (PriceQuote, error) {
	room, err := service.store.GetRoom(ctx, roomID)
	if err != nil {
		return PriceQuote{}, err
	}
	return CalculatePrice(room.NightlyRate, stay), nil
}

// CheckAvailability reports whether no active reservation on the room overlaps stay.
func (service *Service) CheckAvailability(ctx context.Context, roomID RoomID, stay StayRange) (bool, error) {
	if roomID == 0 {
		return false, ValidationErrors{{Field: "room", Err: ErrMissingRoom}}
	}
	if _, err := service.store.GetRoom(ctx, roomID); err != nil {
		return false, err
	}
	overlapping, err := service.store.CountOverlapping(ctx, roomID, stay, ActiveStatuses(), 0)
	if err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

// CreateReservation books a room for the principal in PENDING state with a computed total.
func (service *Service) CreateReservation(ctx context.Context, principal Principal, request ReservationRequest) (Reservation, error) {
	var created Reservation
	operationError := func() error {
		if err := principal.requireCustomer(); err != nil {
			return err
		}
		if err := service.validateStay(request.RoomID, request.Stay); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			room, err := service.lockBookableRoom(ctx, transactionStore, request.HotelID, request.RoomID)
			if err != nil {
				return err
			}
			if err := ensureVacant(ctx, transactionStore, room.ID, request.Stay, 0); err != nil {
				return err
			}
			createdAt := service.nowFn().UTC()
			created, err = transactionStore.CreateReservation(ctx, Reservation{
				UserID:         principal.UserID(),
				RoomID:         room.ID,
				RoomNumber:     room.Number,
				HotelID:        room.HotelID,
				Stay:           request.Stay,
				TotalPrice:     service.totalFor(room, request.Stay),
				Status:         StatusPending,
				Guest:          request.Guest,
				SpecialRequest: strings.TrimSpace(request.SpecialRequest),
				CreatedAt:      createdAt,
			})
			if err != nil {
				return err
			}
			return transactionStore.RecordStatusChange(ctx, StatusChange{
				ReservationID: created.ID,
				To:            StatusPending,
				Actor:         principal.Subject(),
				Reason:        operationCreateReservation,
				At:            createdAt,
			})
		})
	}()
	entry := OperationLog{
		Operation:     operationCreateReservation,
		Actor:         principal.Subject(),
		ReservationID: created.ID,
		RoomID:        request.RoomID,
		HotelID:       created.HotelID,
		UserID:        principal.UserID(),
		Error:         operationError,
	}
	service.options.logOperation(ctx, entry)
	if operationError != nil {
		return Reservation{}, operationError
	}
	service.options.notify(ctx, operationReservationNotice, Message{
		To:      created.Guest.Email,
		Subject: fmt.Sprintf("Reservation #%d received", created.ID),
		Text: fmt.Sprintf("Hello %s,\n\nyour reservation for room %s from %s to %s is pending payment. Total: %s.\n",
			created.Guest.FirstName, created.RoomNumber, created.Stay.CheckIn().Format(DateLayout), created.Stay.CheckOut().Format(DateLayout), created.TotalPrice),
	}, entry)
	return created, nil
}

// RescheduleReservation moves a PENDING reservation to new dates and reprices it.
func (service *Service) RescheduleReservation(ctx context.Context, principal Principal, reservationID ReservationID, stay StayRange) (Reservation, error) {
	var updated Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := loadVisibleReservation(ctx, transactionStore, principal, reservationID)
		if err != nil {
			return err
		}
		if reservation.Status != StatusPending {
			return fmt.Errorf("%w: reservation is %s", ErrReservationLocked, reservation.Status)
		}
		if err := service.validateStay(reservation.RoomID, stay); err != nil {
			return err
		}
		room, err := transactionStore.LockRoom(ctx, reservation.RoomID)
		if err != nil {
			return err
		}
		if err := ensureVacant(ctx, transactionStore, room.ID, stay, reservation.ID); err != nil {
			return err
		}
		total := service.totalFor(room, stay)
		if err := transactionStore.UpdateReservationStay(ctx, reservation.ID, stay, total); err != nil {
			return err
		}
		reservation.Stay = stay
		reservation.TotalPrice = total
		updated = reservation
		return nil
	})
	service.options.logOperation(ctx, OperationLog{
		Operation:     operationReschedule,
		Actor:         principal.Subject(),
		ReservationID: reservationID,
		RoomID:        updated.RoomID,
		UserID:        principal.UserID(),
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return updated, nil
}

// RecalculateTotal reprices a PENDING reservation from its room's current rate; repeating it
// changes nothing. Settled totals stay as they were paid.
func (service *Service) RecalculateTotal(ctx context.Context, principal Principal, reservationID ReservationID) (Reservation, error) {
	var recalculated Reservation
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			reservation, err := loadVisibleReservation(ctx, transactionStore, principal, reservationID)
			if err != nil {
				return err
			}
			if reservation.Status != StatusPending {
				return fmt.Errorf("%w: reservation is %s", ErrReservationLocked, reservation.Status)
			}
			room, err := transactionStore.GetRoom(ctx, reservation.RoomID)
			if err != nil {
				return err
			}
			total := service.totalFor(room, reservation.Stay)
			if !total.Equal(reservation.TotalPrice) {
				if err := transactionStore.UpdateReservationTotal(ctx, reservation.ID, total); err != nil {
					return err
				}
			}
			reservation.TotalPrice = total
			recalculated = reservation
			return nil
		})
	}()
	service.options.logOperation(ctx, OperationLog{
		Operation:     operationRecalculateTotal,
		Actor:         principal.Subject(),
		ReservationID: reservationID,
		UserID:        principal.UserID(),
		Detail:        recalculated.TotalPrice.String(),
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return recalculated, nil
}

// GetReservation returns a reservation owned by the principal (any reservation for staff).
func (service *Service) GetReservation(ctx context.Context, principal Principal, reservationID ReservationID) (Reservation, error) {
	return loadVisibleReservation(ctx, service.store, principal, reservationID)
}

// ListReservations returns the principal's reservation history, newest first.
func (service *Service) ListReservations(ctx context.Context, principal Principal, page Page) ([]Reservation, error) {
	if err := principal.requireCustomer(); err != nil {
		return nil, err
	}
	return service.store.ListUserReservations(ctx, principal.UserID(), page.Normalize())
}

// AdminListReservations lists every reservation matching filter.
func (service *Service) AdminListReservations(ctx context.Context, principal Principal, filter ReservationFilter) ([]Reservation, error) {
	if err := principal.requireStaff(); err != nil {
		return nil, err
	}
	filter.Page = filter.Page.Normalize()
	return service.store.ListReservations(ctx, filter)
}

// ListPayments lists payments for the admin console.
func (service *Service) ListPayments(ctx context.Context, principal Principal, filter PaymentFilter) ([]Payment, error) {
	if err := principal.requireStaff(); err != nil {
		return nil, err
	}
	filter.Page = filter.Page.Normalize()
	return service.store.ListPayments(ctx, filter)
}

// ListReviews lists reviews for the admin console.
func (service *Service) ListReviews(ctx context.Context, principal Principal, filter ReviewFilter) ([]Review, error) {
	if err := principal.requireStaff(); err != nil {
		return nil, err
	}
	filter.Page = filter.Page.Normalize()
	return service.store.ListReviews(ctx, filter)
}

// CancelReservation cancels a PENDING or PAID reservation on behalf of its owner or staff.
func (service *Service) CancelReservation(ctx context.Context, principal Principal, reservationID ReservationID) (Reservation, error) {
	return service.transitionOne(ctx, principal, reservationID, StatusCancelled, operationCancelReservation)
}

// TransitionStatus moves one reservation along the lifecycle; an invalid edge is ErrForbiddenTransition.
func (service *Service) TransitionStatus(ctx context.Context, principal Principal, reservationID ReservationID, target ReservationStatus) (Reservation, error) {
	if err := principal.requireStaff(); err != nil {
		return Reservation{}, err
	}
	return service.transitionOne(ctx, principal, reservationID, target, operationTransition)
}

func (service *Service) transitionOne(ctx context.Context, principal Principal, reservationID ReservationID, target ReservationStatus, operation string) (Reservation, error) {
	var transitioned Reservation
	var previous ReservationStatus
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := loadVisibleReservation(ctx, transactionStore, principal, reservationID)
		if err != nil {
			return err
		}
		previous = reservation.Status
		if err := checkTransition(reservation.Status, target); err != nil {
			return err
		}
		if err := service.applyTransition(ctx, transactionStore, reservation, target, principal.Subject(), operation); err != nil {
			return err
		}
		reservation.Status = target
		transitioned = reservation
		return nil
	})
	service.options.logOperation(ctx, OperationLog{
		Operation:     operation,
		Actor:         principal.Subject(),
		ReservationID: reservationID,
		RoomID:        transitioned.RoomID,
		UserID:        principal.UserID(),
		Detail:        fmt.Sprintf("%s -> %s", previous, target),
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return transitioned, nil
}

// BulkTransition applies target to every listed reservation currently in a valid source state
// and skips the rest, reporting a per-id outcome in request order.
func (service *Service) BulkTransition(ctx context.Context, principal Principal, reservationIDs []ReservationID, target ReservationStatus) ([]TransitionResult, error) {
	if err := principal.requireStaff(); err != nil {
		return nil, err
	}
	if _, err := ParseReservationStatus(string(target)); err != nil {
		return nil, ValidationErrors{{Field: "status", Err: err}}
	}
	uniqueIDs := dedupeReservationIDs(reservationIDs)
	if len(uniqueIDs) == 0 {
		return nil, ValidationErrors{{Field: "ids", Err: ErrEmptyTransitionRequest}}
	}
	var results []TransitionResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		results = make([]TransitionResult, 0, len(uniqueIDs))
		for _, reservationID := range uniqueIDs {
			result, err := service.transitionIfEligible(ctx, transactionStore, principal, reservationID, target)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	applied := 0
	for _, result := range results {
		if result.Outcome == OutcomeApplied {
			applied++
		}
	}
	service.options.logOperation(ctx, OperationLog{
		Operation: operationBulkTransition,
		Actor:     principal.Subject(),
		UserID:    principal.UserID(),
		Detail:    fmt.Sprintf("%d of %d moved to %s", applied, len(uniqueIDs), target),
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return results, nil
}

func (service *Service) transitionIfEligible(ctx context.Context, transactionStore Store, principal Principal, reservationID ReservationID, target ReservationStatus) (TransitionResult, error) {
	result := TransitionResult{ReservationID: reservationID}
	reservation, err := transactionStore.GetReservation(ctx, reservationID)
	if errors.Is(err, ErrUnknownReservation) {
		result.Outcome = OutcomeNotFound
		return result, nil
	}
	if err != nil {
		return TransitionResult{}, err
	}
	result.PreviousStatus = reservation.Status
	if !CanTransition(reservation.Status, target) {
		result.Outcome = OutcomeSkippedInvalidSource
		return result, nil
	}
	err = service.applyTransition(ctx, transactionStore, reservation, target, principal.Subject(), operationBulkTransition)
	if errors.Is(err, ErrStatusConflict) {
		result.Outcome = OutcomeSkippedInvalidSource
		return result, nil
	}
	if err != nil {
		return TransitionResult{}, err
	}
	result.Outcome = OutcomeApplied
	return result, nil
}

// applyTransition assumes the edge was already checked.
func (service *Service) applyTransition(ctx context.Context, transactionStore Store, reservation Reservation, target ReservationStatus, actor string, reason string) error {
	if err := transactionStore.UpdateReservationStatus(ctx, reservation.ID, reservation.Status, target); err != nil {
		return err
	}
	changedAt := service.nowFn().UTC()
	if target == StatusPaid {
		if err := settlePayment(ctx, transactionStore, reservation.ID, changedAt); err != nil {
			return err
		}
	}
	return transactionStore.RecordStatusChange(ctx, StatusChange{
		ReservationID: reservation.ID,
		From:          reservation.Status,
		To:            target,
		Actor:         actor,
		Reason:        reason,
		At:            changedAt,
	})
}

// SubmitPayment records the guest's payment, flips is_paid exactly once and moves the reservation to PAID.
func (service *Service) SubmitPayment(ctx context.Context, principal Principal, reservationID ReservationID, submission PaymentSubmission) (Payment, error) {
	var recorded Payment
	operationError := func() error {
		if err := principal.requireCustomer(); err != nil {
			return err
		}
		if _, err := ParsePaymentMethod(string(submission.Method)); err != nil {
			return ValidationErrors{{Field: "method", Err: err}}
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			reservation, err := loadVisibleReservation(ctx, transactionStore, principal, reservationID)
			if err != nil {
				return err
			}
			if err := checkPayable(ctx, transactionStore, reservation); err != nil {
				return err
			}
			paidAt := service.nowFn().UTC()
			recorded = Payment{
				ReservationID: reservation.ID,
				Method:        submission.Method,
				IsPaid:        true,
				ProofRef:      submission.ProofRef,
				PaidAt:        &paidAt,
			}
			if err := transactionStore.SavePayment(ctx, recorded); err != nil {
				return err
			}
			return service.applyTransition(ctx, transactionStore, reservation, StatusPaid, principal.Subject(), operationSubmitPayment)
		})
	}()
	service.options.logOperation(ctx, OperationLog{
		Operation:     operationSubmitPayment,
		Actor:         principal.Subject(),
		ReservationID: reservationID,
		UserID:        principal.UserID(),
		Detail:        string(submission.Method),
		Error:         operationError,
	})
	if operationError != nil {
		return Payment{}, operationError
	}
	return recorded, nil
}

// CheckPayable reports whether the principal may submit a payment for the reservation now,
// with the same errors SubmitPayment would return.
func (service *Service) CheckPayable(ctx context.Context, principal Principal, reservationID ReservationID) error {
	if err := principal.requireCustomer(); err != nil {
		return err
	}
	reservation, err := loadVisibleReservation(ctx, service.store, principal, reservationID)
	if err != nil {
		return err
	}
	return checkPayable(ctx, service.store, reservation)
}

func checkPayable(ctx context.Context, store Store, reservation Reservation) error {
	existing, err := store.GetPayment(ctx, reservation.ID)
	switch {
	case errors.Is(err, ErrUnknownPayment):
	case err != nil:
		return err
	case existing.IsPaid:
		return ErrPaymentAlreadyPaid
	}
	return checkTransition(reservation.Status, StatusPaid)
}

// settlePayment marks an existing unpaid payment as paid; a missing payment is left alone.
func settlePayment(ctx context.Context, transactionStore Store, reservationID ReservationID, paidAt time.Time) error {
	payment, err := transactionStore.GetPayment(ctx, reservationID)
	if errors.Is(err, ErrUnknownPayment) {
		return nil
	}
	if err != nil {
		return err
	}
	if payment.IsPaid {
		return nil
	}
	payment.IsPaid = true
	payment.PaidAt = &paidAt
	return transactionStore.SavePayment(ctx, payment)
}

// SubmitReview rates a CHECKED_OUT stay and recomputes the hotel's average in the same transaction.
func (service *Service) SubmitReview(ctx context.Context, principal Principal, reservationID ReservationID, rating Rating, comment string) (Review, error) {
	var created Review
	operationError := func() error {
		if err := principal.requireCustomer(); err != nil {
			return err
		}
		if _, err := NewRating(int(rating)); err != nil {
			return ValidationErrors{{Field: "rating", Err: err}}
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			reservation, err := transactionStore.GetReservation(ctx, reservationID)
			if err != nil {
				return err
			}
			if reservation.UserID != principal.UserID() {
				return hiddenReservation()
			}
			if reservation.Status != StatusCheckedOut {
				return fmt.Errorf("%w: reservation is %s", ErrReviewNotAllowed, reservation.Status)
			}
			if reservation.Review != nil {
				return ErrReviewExists
			}
			created, err = transactionStore.CreateReview(ctx, Review{
				ReservationID: reservation.ID,
				HotelID:       reservation.HotelID,
				Rating:        rating,
				Comment:       strings.TrimSpace(comment),
				CreatedAt:     service.nowFn().UTC(),
			})
			if err != nil {
				return err
			}
			_, err = recomputeRating(ctx, transactionStore, reservation.HotelID)
			return err
		})
	}()
	service.options.logOperation(ctx, OperationLog{
		Operation:     operationSubmitReview,
		Actor:         principal.Subject(),
		ReservationID: reservationID,
		HotelID:       created.HotelID,
		UserID:        principal.UserID(),
		Error:         operationError,
	})
	if operationError != nil {
		return Review{}, operationError
	}
	return created, nil
}

// DeleteReview removes a review and recomputes the hotel's average; the last removal resets it to zero.
func (service *Service) DeleteReview(ctx context.Context, principal Principal, reviewID ReviewID) error {
	var hotelID HotelID
	operationError := func() error {
		if err := principal.requireStaff(); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			review, err := transactionStore.GetReview(ctx, reviewID)
			if err != nil {
				return err
			}
			hotelID = review.HotelID
			if err := transactionStore.DeleteReview(ctx, reviewID); err != nil {
				return err
			}
			_, err = recomputeRating(ctx, transactionStore, review.HotelID)
			return err
		})
	}()
	service.options.logOperation(ctx, OperationLog{
		Operation: operationDeleteReview,
		Actor:     principal.Subject(),
		HotelID:   hotelID,
		Detail:    fmt.Sprintf("review %d", reviewID),
		Error:     operationError,
	})
	return operationError
}

// RecomputeHotelRating rebuilds a hotel's average rating from all of its reviews.
func (service *Service) RecomputeHotelRating(ctx context.Context, hotelID HotelID) (RatingSummary, error) {
	var summary RatingSummary
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		summary, err = recomputeRating(ctx, transactionStore, hotelID)
		return err
	})
	service.options.logOperation(ctx, OperationLog{
		Operation: operationRecomputeRating,
		HotelID:   hotelID,
		Detail:    fmt.Sprintf("%.2f over %d reviews", summary.Average, summary.Count),
		Error:     operationError,
	})
	if operationError != nil {
		return RatingSummary{}, operationError
	}
	return summary, nil
}

func recomputeRating(ctx context.Context, transactionStore Store, hotelID HotelID) (RatingSummary, error) {
	summary, err := transactionStore.SummarizeHotelRatings(ctx, hotelID)
	if err != nil {
		return RatingSummary{}, err
	}
	if summary.Count == 0 {
		summary.Average = 0
	}
	if err := transactionStore.SetHotelAverageRating(ctx, hotelID, summary.Average); err != nil {
		return RatingSummary{}, err
	}
	return summary, nil
}

// validateStay rejects a missing room and check-in dates before today.
func (service *Service) validateStay(roomID RoomID, stay StayRange) error {
	var validationErrors ValidationErrors
	if roomID == 0 {
		validationErrors.add("room", ErrMissingRoom)
	}
	if stay.CheckIn().IsZero() {
		validationErrors.add("check_in", ErrInvalidDate)
	} else {
		today := now.With(service.nowFn().UTC()).BeginningOfDay()
		if stay.CheckIn().Before(today) {
			validationErrors.add("check_in", fmt.Errorf("%w: %s", ErrCheckInInPast, stay.CheckIn().Format(DateLayout)))
		}
	}
	return validationErrors.orNil()
}

// lockBookableRoom resolves the room inside the transaction; an unresolvable or unoffered room is a form error.
func (service *Service) lockBookableRoom(ctx context.Context, transactionStore Store, hotelID HotelID, roomID RoomID) (Room, error) {
	room, err := transactionStore.LockRoom(ctx, roomID)
	if errors.Is(err, ErrUnknownRoom) {
		return Room{}, ValidationErrors{{Field: "room", Err: fmt.Errorf("%w: %w", ErrMissingRoom, err)}}
	}
	if err != nil {
		return Room{}, err
	}
	if hotelID != 0 && room.HotelID != hotelID {
		return Room{}, ValidationErrors{{Field: "room", Err: fmt.Errorf("%w: room %d is not in hotel %d", ErrRoomNotOffered, roomID, hotelID)}}
	}
	if !room.IsAvailable {
		return Room{}, ValidationErrors{{Field: "room", Err: fmt.Errorf("%w: room %s", ErrRoomNotOffered, room.Number)}}
	}
	return room, nil
}

func ensureVacant(ctx context.Context, transactionStore Store, roomID RoomID, stay StayRange, exclude ReservationID) error {
	overlapping, err := transactionStore.CountOverlapping(ctx, roomID, stay, ActiveStatuses(), exclude)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return fmt.Errorf("%w: %s", ErrRoomUnavailable, stay)
	}
	return nil
}

func (service *Service) totalFor(room Room, stay StayRange) Money {
	return CalculatePrice(room.NightlyRate, stay).Total.Round(service.options.currencyPlaces)
}

func loadVisibleReservation(ctx context.Context, store Store, principal Principal, reservationID ReservationID) (Reservation, error) {
	if err := principal.requireCustomerOrStaff(); err != nil {
		return Reservation{}, err
	}
	reservation, err := store.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	if !principal.canSee(reservation.UserID) {
		return Reservation{}, hiddenReservation()
	}
	return reservation, nil
}

func dedupeReservationIDs(reservationIDs []ReservationID) []ReservationID {
	seen := make(map[ReservationID]struct{}, len(reservationIDs))
	unique := make([]ReservationID, 0, len(reservationIDs))
	for _, reservationID := range reservationIDs {
		if reservationID == 0 {
			continue
		}
		if _, exists := seen[reservationID]; exists {
			continue
		}
		seen[reservationID] = struct{}{}
		unique = append(unique, reservationID)
	}
	return unique
}

// hiddenReservation matches the store's not-found error so other users' records are indistinguishable from missing ones.
func hiddenReservation() error {
	return WrapError(subjectStore, subjectReservation, codeGet, ErrUnknownReservation)
}
