package booking

import (
	"context"
	"errors"
	"testing"
)

func TestLifecycleSucceedsInSequence(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	customer := mustCustomer(test, testUserID)
	staff := mustStaff(test)
	reservation, err := bookRoom(test, service, customer, "2024-01-02", "2024-01-04")
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if _, err := service.SubmitPayment(context.Background(), customer, reservation.ID, PaymentSubmission{Method: PaymentMethodBankTransfer, ProofRef: "proofs/1.png"}); err != nil {
		test.Fatalf("submit payment: %v", err)
	}
	for _, target := range []ReservationStatus{StatusCheckedIn, StatusCheckedOut} {
		if _, err := service.TransitionStatus(context.Background(), staff, reservation.ID, target); err != nil {
			test.Fatalf("transition to %s: %v", target, err)
		}
	}
	if status := store.mustReservation(test, reservation.ID).Status; status != StatusCheckedOut {
		test.Fatalf("expected CHECKED_OUT, got %s", status)
	}
	expectedAudit := []ReservationStatus{StatusPending, StatusPaid, StatusCheckedIn, StatusCheckedOut}
	if len(store.statusChanges) != len(expectedAudit) {
		test.Fatalf("expected %d audit entries, got %+v", len(expectedAudit), store.statusChanges)
	}
	for index, change := range store.statusChanges {
		if change.To != expectedAudit[index] {
			test.Fatalf("audit entry %d: expected %s, got %s", index, expectedAudit[index], change.To)
		}
	}
}

func TestTransitionStatusRejectsForbiddenEdges(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		from ReservationStatus
		to   ReservationStatus
	}{
		{from: StatusCheckedIn, to: StatusPending},
		{from: StatusCheckedIn, to: StatusCancelled},
		{from: StatusCheckedOut, to: StatusCheckedIn},
		{from: StatusCancelled, to: StatusPending},
		{from: StatusPending, to: StatusCheckedIn},
		{from: StatusPaid, to: StatusPaid},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(string(testCase.from)+"->"+string(testCase.to), func(test *testing.T) {
			test.Parallel()
			store, service := newBookingFixture(test)
			reservation := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Stay: mustStay(test, "2024-01-02", "2024-01-03"), Status: testCase.from})

			_, err := service.TransitionStatus(context.Background(), mustStaff(test), reservation.ID, testCase.to)
			requireErrorIs(test, err, ErrForbiddenTransition)
			if status := store.mustReservation(test, reservation.ID).Status; status != testCase.from {
				test.Fatalf("status must stay %s, got %s", testCase.from, status)
			}
		})
	}
}

func TestTransitionStatusRequiresStaff(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	reservation := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusPaid})
	_, err := service.TransitionStatus(context.Background(), mustCustomer(test, testUserID), reservation.ID, StatusCheckedIn)
	requireErrorIs(test, err, ErrForbidden)
}

func TestCancelReservationFromPendingAndPaidOnly(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	customer := mustCustomer(test, testUserID)
	pending := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusPending})
	paid := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusPaid})
	checkedIn := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusCheckedIn})

	for _, reservation := range []Reservation{pending, paid} {
		cancelled, err := service.CancelReservation(context.Background(), customer, reservation.ID)
		if err != nil {
			test.Fatalf("cancel %s: %v", reservation.Status, err)
		}
		if cancelled.Status != StatusCancelled {
			test.Fatalf("expected CANCELLED, got %s", cancelled.Status)
		}
	}
	_, err := service.CancelReservation(context.Background(), customer, checkedIn.ID)
	requireErrorIs(test, err, ErrForbiddenTransition)
}

func TestBulkTransitionReportsPerReservationOutcome(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	paid := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusPaid})
	checkedIn := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusCheckedIn})
	cancelled := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusCancelled})
	logger := &recorderLogger{}
	service.options.logger = logger

	results, err := service.BulkTransition(context.Background(), mustStaff(test), []ReservationID{paid.ID, checkedIn.ID, cancelled.ID, 9999, paid.ID}, StatusCheckedIn)
	if err != nil {
		test.Fatalf("bulk transition: %v", err)
	}
	expected := []TransitionResult{
		{ReservationID: paid.ID, PreviousStatus: StatusPaid, Outcome: OutcomeApplied},
		{ReservationID: checkedIn.ID, PreviousStatus: StatusCheckedIn, Outcome: OutcomeSkippedInvalidSource},
		{ReservationID: cancelled.ID, PreviousStatus: StatusCancelled, Outcome: OutcomeSkippedInvalidSource},
		{ReservationID: 9999, Outcome: OutcomeNotFound},
	}
	if len(results) != len(expected) {
		test.Fatalf("expected %d results, got %+v", len(expected), results)
	}
	for index, result := range results {
		if result != expected[index] {
			test.Fatalf("result %d: expected %+v, got %+v", index, expected[index], result)
		}
	}
	if store.mustReservation(test, paid.ID).Status != StatusCheckedIn {
		test.Fatalf("eligible reservation must move")
	}
	if store.mustReservation(test, cancelled.ID).Status != StatusCancelled {
		test.Fatalf("ineligible reservation must be untouched")
	}
	entry, found := logger.find(operationBulkTransition)
	if !found || entry.Detail != "1 of 4 moved to CHECKED_IN" {
		test.Fatalf("unexpected bulk log entry: %+v", entry)
	}
}

func TestBulkTransitionToPaidSettlesPayment(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	pending := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusPending})
	store.payments[pending.ID] = Payment{ReservationID: pending.ID, Method: PaymentMethodEWallet}

	if _, err := service.BulkTransition(context.Background(), mustStaff(test), []ReservationID{pending.ID}, StatusPaid); err != nil {
		test.Fatalf("bulk transition: %v", err)
	}
	payment := store.payments[pending.ID]
	if !payment.IsPaid || payment.PaidAt == nil || !payment.PaidAt.Equal(fixedNow) {
		test.Fatalf("expected payment settled at %s, got %+v", fixedNow, payment)
	}
}

func TestBulkTransitionValidatesRequest(test *testing.T) {
	test.Parallel()
	_, service := newBookingFixture(test)
	staff := mustStaff(test)
	_, err := service.BulkTransition(context.Background(), staff, nil, StatusPaid)
	requireErrorIs(test, err, ErrEmptyTransitionRequest)
	_, err = service.BulkTransition(context.Background(), staff, []ReservationID{1}, ReservationStatus("ARCHIVED"))
	requireErrorIs(test, err, ErrInvalidStatus)
	_, err = service.BulkTransition(context.Background(), mustCustomer(test, testUserID), []ReservationID{1}, StatusPaid)
	requireErrorIs(test, err, ErrForbidden)
}

func TestSubmitPaymentFlipsPaidExactlyOnce(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	customer := mustCustomer(test, testUserID)
	reservation, err := bookRoom(test, service, customer, "2024-01-02", "2024-01-03")
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}

	payment, err := service.SubmitPayment(context.Background(), customer, reservation.ID, PaymentSubmission{Method: PaymentMethodEWallet})
	if err != nil {
		test.Fatalf("submit payment: %v", err)
	}
	if !payment.IsPaid || payment.PaidAt == nil || !payment.PaidAt.Equal(fixedNow) {
		test.Fatalf("unexpected payment: %+v", payment)
	}
	if store.mustReservation(test, reservation.ID).Status != StatusPaid {
		test.Fatalf("expected reservation PAID")
	}

	_, err = service.SubmitPayment(context.Background(), customer, reservation.ID, PaymentSubmission{Method: PaymentMethodBankTransfer})
	requireErrorIs(test, err, ErrPaymentAlreadyPaid)
	if stored := store.payments[reservation.ID]; stored.Method != PaymentMethodEWallet || !stored.PaidAt.Equal(fixedNow) {
		test.Fatalf("second submission must not change the payment: %+v", stored)
	}
}

func TestSubmitPaymentRejectsCancelledReservationAndBadMethod(test *testing.T) {
	test.Parallel()
	store, service := newBookingFixture(test)
	customer := mustCustomer(test, testUserID)
	cancelled := store.addReservation(test, Reservation{UserID: testUserID, RoomID: testRoomID, Status: StatusCancelled})

	_, err := service.SubmitPayment(context.Background(), customer, cancelled.ID, PaymentSubmission{Method: PaymentMethodBankTransfer})
	requireErrorIs(test, err, ErrForbiddenTransition)
	if _, exists := store.payments[cancelled.ID]; exists {
		test.Fatalf("failed submission must not store a payment")
	}
	_, err = service.SubmitPayment(context.Background(), customer, cancelled.ID, PaymentSubmission{Method: "CASH"})
	requireErrorIs(test, err, ErrInvalidPaymentMethod)
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store, _ := newBookingFixture(test)
	store.failWith = errors.New("boom")
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	_, err := service.CancelReservation(context.Background(), mustCustomer(test, testUserID), 1)
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != OperationStatusError || logger.entries[0].Operation != operationCancelReservation {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}
