package booking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// memoryStore is an in-memory Store. WithTx snapshots state and restores it when fn fails.
type memoryStore struct {
	mu            *sync.Mutex
	rooms         map[RoomID]Room
	hotels        map[HotelID]float64
	reservations  map[ReservationID]Reservation
	payments      map[ReservationID]Payment
	reviews       map[ReviewID]Review
	statusChanges []StatusChange
	nextID        uint64
	lockedRooms   []RoomID
	failWith      error
}

func newMemoryStore(test *testing.T) *memoryStore {
	test.Helper()
	return &memoryStore{
		mu:           &sync.Mutex{},
		rooms:        map[RoomID]Room{},
		hotels:       map[HotelID]float64{},
		reservations: map[ReservationID]Reservation{},
		payments:     map[ReservationID]Payment{},
		reviews:      map[ReviewID]Review{},
	}
}

func (store *memoryStore) addRoom(test *testing.T, room Room) Room {
	test.Helper()
	store.rooms[room.ID] = room
	if _, exists := store.hotels[room.HotelID]; !exists {
		store.hotels[room.HotelID] = 0
	}
	return room
}

func (store *memoryStore) addReservation(test *testing.T, reservation Reservation) Reservation {
	test.Helper()
	store.nextID++
	reservation.ID = ReservationID(store.nextID)
	store.reservations[reservation.ID] = reservation
	return reservation
}

func (store *memoryStore) mustReservation(test *testing.T, reservationID ReservationID) Reservation {
	test.Helper()
	reservation, exists := store.reservations[reservationID]
	if !exists {
		test.Fatalf("reservation %d not stored", reservationID)
	}
	return reservation
}

func (store *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.failWith != nil {
		return store.failWith
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	snapshot := store.clone()
	if err := fn(ctx, store); err != nil {
		store.restore(snapshot)
		return err
	}
	return nil
}

func (store *memoryStore) clone() memoryStore {
	snapshot := memoryStore{
		rooms:         map[RoomID]Room{},
		hotels:        map[HotelID]float64{},
		reservations:  map[ReservationID]Reservation{},
		payments:      map[ReservationID]Payment{},
		reviews:       map[ReviewID]Review{},
		statusChanges: append([]StatusChange(nil), store.statusChanges...),
		nextID:        store.nextID,
	}
	for key, value := range store.rooms {
		snapshot.rooms[key] = value
	}
	for key, value := range store.hotels {
		snapshot.hotels[key] = value
	}
	for key, value := range store.reservations {
		snapshot.reservations[key] = value
	}
	for key, value := range store.payments {
		snapshot.payments[key] = value
	}
	for key, value := range store.reviews {
		snapshot.reviews[key] = value
	}
	return snapshot
}

func (store *memoryStore) restore(snapshot memoryStore) {
	store.rooms = snapshot.rooms
	store.hotels = snapshot.hotels
	store.reservations = snapshot.reservations
	store.payments = snapshot.payments
	store.reviews = snapshot.reviews
	store.statusChanges = snapshot.statusChanges
	store.nextID = snapshot.nextID
}

func (store *memoryStore) GetRoom(_ context.Context, roomID RoomID) (Room, error) {
	room, exists := store.rooms[roomID]
	if !exists {
		return Room{}, WrapError("store", "room", "get", ErrUnknownRoom)
	}
	return room, nil
}

func (store *memoryStore) LockRoom(ctx context.Context, roomID RoomID) (Room, error) {
	room, err := store.GetRoom(ctx, roomID)
	if err == nil {
		store.lockedRooms = append(store.lockedRooms, roomID)
	}
	return room, err
}

func (store *memoryStore) CountOverlapping(_ context.Context, roomID RoomID, stay StayRange, statuses []ReservationStatus, exclude ReservationID) (int64, error) {
	var count int64
	for _, reservation := range store.reservations {
		if reservation.RoomID != roomID || reservation.ID == exclude {
			continue
		}
		if !containsStatus(statuses, reservation.Status) {
			continue
		}
		if reservation.Stay.Overlaps(stay) {
			count++
		}
	}
	return count, nil
}

func (store *memoryStore) CreateReservation(_ context.Context, reservation Reservation) (Reservation, error) {
	store.nextID++
	reservation.ID = ReservationID(store.nextID)
	store.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (store *memoryStore) GetReservation(_ context.Context, reservationID ReservationID) (Reservation, error) {
	reservation, exists := store.reservations[reservationID]
	if !exists {
		return Reservation{}, WrapError("store", "reservation", "get", ErrUnknownReservation)
	}
	if payment, paid := store.payments[reservationID]; paid {
		reservation.Payment = &payment
	}
	for _, review := range store.reviews {
		if review.ReservationID == reservationID {
			reviewCopy := review
			reservation.Review = &reviewCopy
		}
	}
	return reservation, nil
}

func (store *memoryStore) ListUserReservations(_ context.Context, userID UserID, page Page) ([]Reservation, error) {
	var listed []Reservation
	for _, reservation := range store.reservations {
		if reservation.UserID == userID {
			listed = append(listed, reservation)
		}
	}
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].CreatedAt.After(listed[right].CreatedAt)
	})
	return paginate(listed, page), nil
}

func (store *memoryStore) ListReservations(_ context.Context, filter ReservationFilter) ([]Reservation, error) {
	var listed []Reservation
	for _, reservation := range store.reservations {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, reservation.Status) {
			continue
		}
		if filter.Search != "" && !strings.Contains(reservation.RoomNumber, filter.Search) {
			continue
		}
		listed = append(listed, reservation)
	}
	sort.Slice(listed, func(left, right int) bool { return listed[left].ID > listed[right].ID })
	return paginate(listed, filter.Page), nil
}

func (store *memoryStore) UpdateReservationStatus(_ context.Context, reservationID ReservationID, from, to ReservationStatus) error {
	reservation, exists := store.reservations[reservationID]
	if !exists || reservation.Status != from {
		return WrapError("store", "reservation", "update_status", ErrStatusConflict)
	}
	reservation.Status = to
	store.reservations[reservationID] = reservation
	return nil
}

func (store *memoryStore) UpdateReservationStay(_ context.Context, reservationID ReservationID, stay StayRange, total Money) error {
	reservation := store.reservations[reservationID]
	reservation.Stay = stay
	reservation.TotalPrice = total
	store.reservations[reservationID] = reservation
	return nil
}

func (store *memoryStore) UpdateReservationTotal(_ context.Context, reservationID ReservationID, total Money) error {
	reservation := store.reservations[reservationID]
	reservation.TotalPrice = total
	store.reservations[reservationID] = reservation
	return nil
}

func (store *memoryStore) RecordStatusChange(_ context.Context, change StatusChange) error {
	store.statusChanges = append(store.statusChanges, change)
	return nil
}

func (store *memoryStore) GetPayment(_ context.Context, reservationID ReservationID) (Payment, error) {
	payment, exists := store.payments[reservationID]
	if !exists {
		return Payment{}, WrapError("store", "payment", "get", ErrUnknownPayment)
	}
	return payment, nil
}

func (store *memoryStore) SavePayment(_ context.Context, payment Payment) error {
	store.payments[payment.ReservationID] = payment
	return nil
}

func (store *memoryStore) ListPayments(_ context.Context, filter PaymentFilter) ([]Payment, error) {
	var listed []Payment
	for _, payment := range store.payments {
		if filter.IsPaid != nil && payment.IsPaid != *filter.IsPaid {
			continue
		}
		listed = append(listed, payment)
	}
	return listed, nil
}

func (store *memoryStore) CreateReview(_ context.Context, review Review) (Review, error) {
	for _, existing := range store.reviews {
		if existing.ReservationID == review.ReservationID {
			return Review{}, WrapError("store", "review", "duplicate", ErrReviewExists)
		}
	}
	store.nextID++
	review.ID = ReviewID(store.nextID)
	store.reviews[review.ID] = review
	return review, nil
}

func (store *memoryStore) GetReview(_ context.Context, reviewID ReviewID) (Review, error) {
	review, exists := store.reviews[reviewID]
	if !exists {
		return Review{}, WrapError("store", "review", "get", ErrUnknownReview)
	}
	return review, nil
}

func (store *memoryStore) DeleteReview(_ context.Context, reviewID ReviewID) error {
	delete(store.reviews, reviewID)
	return nil
}

func (store *memoryStore) ListReviews(_ context.Context, filter ReviewFilter) ([]Review, error) {
	var listed []Review
	for _, review := range store.reviews {
		if filter.Rating != 0 && review.Rating != filter.Rating {
			continue
		}
		listed = append(listed, review)
	}
	return listed, nil
}

func (store *memoryStore) SummarizeHotelRatings(_ context.Context, hotelID HotelID) (RatingSummary, error) {
	var summary RatingSummary
	var total int
	for _, review := range store.reviews {
		if review.HotelID != hotelID {
			continue
		}
		summary.Count++
		total += review.Rating.Int()
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

func (store *memoryStore) SetHotelAverageRating(_ context.Context, hotelID HotelID, average float64) error {
	if _, exists := store.hotels[hotelID]; !exists {
		return WrapError("store", "hotel", "update_rating", ErrUnknownHotel)
	}
	store.hotels[hotelID] = average
	return nil
}

func containsStatus(statuses []ReservationStatus, status ReservationStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) find(operation string) (OperationLog, bool) {
	for _, entry := range logger.entries {
		if entry.Operation == operation {
			return entry, true
		}
	}
	return OperationLog{}, false
}

type recordingNotifier struct {
	messages []Message
	err      error
}

func (notifier *recordingNotifier) Notify(_ context.Context, message Message) error {
	notifier.messages = append(notifier.messages, message)
	return notifier.err
}

var fixedNow = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, fixedClock, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustPrice(test *testing.T, raw string) Money {
	test.Helper()
	price, err := ParsePrice(raw)
	if err != nil {
		test.Fatalf("parse price %q: %v", raw, err)
	}
	return price
}

func mustStay(test *testing.T, checkIn string, checkOut string) StayRange {
	test.Helper()
	stay, err := ParseStayRange(checkIn, checkOut)
	if err != nil {
		test.Fatalf("parse stay %s..%s: %v", checkIn, checkOut, err)
	}
	return stay
}

func mustCustomer(test *testing.T, userID UserID) Principal {
	test.Helper()
	principal, err := NewCustomerPrincipal(userID)
	if err != nil {
		test.Fatalf("customer principal: %v", err)
	}
	return principal
}

func mustStaff(test *testing.T) Principal {
	test.Helper()
	principal, err := NewStaffPrincipal("front-desk@example.com", 0)
	if err != nil {
		test.Fatalf("staff principal: %v", err)
	}
	return principal
}

func mustGuest(test *testing.T) GuestContact {
	test.Helper()
	guest, err := NewGuestContact("Ayu", "Lestari", "ayu@example.com", "081234567890")
	if err != nil {
		test.Fatalf("guest contact: %v", err)
	}
	return guest
}

func requireErrorIs(test *testing.T, err error, target error) {
	test.Helper()
	if !errors.Is(err, target) {
		test.Fatalf("expected %v, got %v", target, err)
	}
}
