package gormstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetRoom(ctx context.Context, roomID booking.RoomID) (booking.Room, error) {
	return loadRoom(store.db.WithContext(ctx), roomID)
}

// LockRoom takes a row lock on Postgres; SQLite already serializes writers.
func (store *Store) LockRoom(ctx context.Context, roomID booking.RoomID) (booking.Room, error) {
	query := store.db.WithContext(ctx)
	if store.db.Dialector.Name() == DriverPostgres {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Room
	if err := query.Where("id = ?", uint64(roomID)).Take(&model).Error; err != nil {
		return booking.Room{}, notFoundOr(errorSubjectRoom, errorCodeLock, err, booking.ErrUnknownRoom)
	}
	return loadRoom(store.db.WithContext(ctx), roomID)
}

func (store *Store) CountOverlapping(ctx context.Context, roomID booking.RoomID, stay booking.StayRange, statuses []booking.ReservationStatus, exclude booking.ReservationID) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("room_id = ?", uint64(roomID)).
		Where("status IN ?", statusStrings(statuses)).
		Where("check_in < ? AND check_out > ?", datatypes.Date(stay.CheckOut()), datatypes.Date(stay.CheckIn())).
		Where("id <> ?", uint64(exclude)).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectReserving, errorCodeOverlap, err)
	}
	return count, nil
}

func (store *Store) CreateReservation(ctx context.Context, reservation booking.Reservation) (booking.Reservation, error) {
	model := Reservation{
		UserID:         uint64(reservation.UserID),
		RoomID:         uint64(reservation.RoomID),
		HotelID:        uint64(reservation.HotelID),
		CheckIn:        datatypes.Date(reservation.Stay.CheckIn()),
		CheckOut:       datatypes.Date(reservation.Stay.CheckOut()),
		TotalPrice:     reservation.TotalPrice.Decimal(),
		Status:         reservation.Status.String(),
		GuestFirstName: reservation.Guest.FirstName,
		GuestLastName:  reservation.Guest.LastName,
		GuestEmail:     reservation.Guest.Email,
		GuestPhone:     reservation.Guest.Phone,
		SpecialRequest: reservation.SpecialRequest,
		CreatedAt:      reservation.CreatedAt,
	}
	err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error
	if isOverlapViolation(err) {
		return booking.Reservation{}, wrapStoreError(errorSubjectReserving, errorCodeOverlap, booking.ErrRoomUnavailable)
	}
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReserving, errorCodeCreate, err)
	}
	reservation.ID = booking.ReservationID(model.ID)
	return reservation, nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID booking.ReservationID) (booking.Reservation, error) {
	var model Reservation
	err := store.reservationQuery(ctx).Where("reservations.id = ?", uint64(reservationID)).Take(&model).Error
	if err != nil {
		return booking.Reservation{}, notFoundOr(errorSubjectReserving, errorCodeGet, err, booking.ErrUnknownReservation)
	}
	reservation, err := mapReservation(model)
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReserving, errorCodeInvalid, err)
	}
	return reservation, nil
}

func (store *Store) ListUserReservations(ctx context.Context, userID booking.UserID, page booking.Page) ([]booking.Reservation, error) {
	var rows []Reservation
	err := store.reservationQuery(ctx).
		Where("reservations.user_id = ?", uint64(userID)).
		Order("reservations.created_at DESC").
		Order("reservations.id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReserving, errorCodeList, err)
	}
	return mapReservations(rows)
}

func (store *Store) ListReservations(ctx context.Context, filter booking.ReservationFilter) ([]booking.Reservation, error) {
	query := store.reservationQuery(ctx).
		Joins("JOIN users ON users.id = reservations.user_id").
		Joins("JOIN rooms ON rooms.id = reservations.room_id")
	if len(filter.Statuses) > 0 {
		query = query.Where("reservations.status IN ?", statusStrings(filter.Statuses))
	}
	if filter.HotelID != 0 {
		query = query.Where("reservations.hotel_id = ?", uint64(filter.HotelID))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where("(LOWER(users.username) LIKE ? OR LOWER(rooms.number) LIKE ?)", pattern, pattern)
	}
	query = applyDateBounds(query, "reservations.check_in", filter.CheckInFrom, filter.CheckInTo)
	query = applyDateBounds(query, "reservations.check_out", filter.CheckOutFrom, filter.CheckOutTo)
	var rows []Reservation
	err := query.
		Order("reservations.created_at DESC").
		Order("reservations.id DESC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReserving, errorCodeList, err)
	}
	return mapReservations(rows)
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID booking.ReservationID, from, to booking.ReservationStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", uint64(reservationID), from.String()).
		Updates(map[string]interface{}{"status": to.String(), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrapStoreError(errorSubjectReserving, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReserving, errorCodeUpdateStatus, booking.ErrStatusConflict)
	}
	return nil
}

func (store *Store) UpdateReservationStay(ctx context.Context, reservationID booking.ReservationID, stay booking.StayRange, total booking.Money) error {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ?", uint64(reservationID)).
		Updates(map[string]interface{}{
			"check_in":    datatypes.Date(stay.CheckIn()),
			"check_out":   datatypes.Date(stay.CheckOut()),
			"total_price": total.Decimal(),
			"updated_at":  time.Now().UTC(),
		})
	if isOverlapViolation(result.Error) {
		return wrapStoreError(errorSubjectReserving, errorCodeOverlap, booking.ErrRoomUnavailable)
	}
	return rowsOrMissing(result, errorSubjectReserving, booking.ErrUnknownReservation)
}

func (store *Store) UpdateReservationTotal(ctx context.Context, reservationID booking.ReservationID, total booking.Money) error {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ?", uint64(reservationID)).
		Updates(map[string]interface{}{"total_price": total.Decimal(), "updated_at": time.Now().UTC()})
	return rowsOrMissing(result, errorSubjectReserving, booking.ErrUnknownReservation)
}

func (store *Store) RecordStatusChange(ctx context.Context, change booking.StatusChange) error {
	detail, err := json.Marshal(map[string]string{"reason": change.Reason})
	if err != nil {
		return wrapStoreError(errorSubjectStatus, errorCodeInvalid, err)
	}
	model := StatusChange{
		ReservationID: uint64(change.ReservationID),
		FromStatus:    change.From.String(),
		ToStatus:      change.To.String(),
		Actor:         change.Actor,
		Detail:        datatypes.JSON(detail),
		ChangedAt:     change.At,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectStatus, errorCodeInsert, err)
	}
	return nil
}

// ListStatusChanges returns the audit trail of one reservation, oldest first.
func (store *Store) ListStatusChanges(ctx context.Context, reservationID booking.ReservationID) ([]booking.StatusChange, error) {
	var rows []StatusChange
	err := store.db.WithContext(ctx).
		Where("reservation_id = ?", uint64(reservationID)).
		Order("changed_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectStatus, errorCodeList, err)
	}
	changes := make([]booking.StatusChange, 0, len(rows))
	for _, row := range rows {
		var detail struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(row.Detail, &detail); err != nil {
			return nil, wrapStoreError(errorSubjectStatus, errorCodeInvalid, err)
		}
		changes = append(changes, booking.StatusChange{
			ReservationID: booking.ReservationID(row.ReservationID),
			From:          booking.ReservationStatus(row.FromStatus),
			To:            booking.ReservationStatus(row.ToStatus),
			Actor:         row.Actor,
			Reason:        detail.Reason,
			At:            row.ChangedAt,
		})
	}
	return changes, nil
}

func (store *Store) GetPayment(ctx context.Context, reservationID booking.ReservationID) (booking.Payment, error) {
	var model Payment
	err := store.db.WithContext(ctx).Where("reservation_id = ?", uint64(reservationID)).Take(&model).Error
	if err != nil {
		return booking.Payment{}, notFoundOr(errorSubjectPayment, errorCodeGet, err, booking.ErrUnknownPayment)
	}
	return mapPayment(model), nil
}

// SavePayment upserts the payment row. Once is_paid is true the row is never flipped back or re-stamped.
func (store *Store) SavePayment(ctx context.Context, payment booking.Payment) error {
	model := Payment{
		ReservationID: uint64(payment.ReservationID),
		Method:        payment.Method.String(),
		IsPaid:        payment.IsPaid,
		ProofRef:      payment.ProofRef,
		PaidAt:        payment.PaidAt,
		CreatedAt:     time.Now().UTC(),
	}
	result := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "reservation_id"}},
			Where:   clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Table: "payments", Name: "is_paid"}, Value: false}}},
			DoUpdates: clause.AssignmentColumns([]string{
				"method",
				"is_paid",
				"proof_ref",
				"paid_at",
			}),
		}).
		Create(&model)
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeSave, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPayment, errorCodeSave, booking.ErrPaymentAlreadyPaid)
	}
	return nil
}

func (store *Store) ListPayments(ctx context.Context, filter booking.PaymentFilter) ([]booking.Payment, error) {
	query := store.db.WithContext(ctx).Model(&Payment{})
	if filter.IsPaid != nil {
		query = query.Where("payments.is_paid = ?", *filter.IsPaid)
	}
	if filter.Method != "" {
		query = query.Where("payments.method = ?", filter.Method.String())
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.
			Joins("JOIN reservations ON reservations.id = payments.reservation_id").
			Joins("JOIN users ON users.id = reservations.user_id").
			Where("LOWER(users.username) LIKE ?", likePattern(search))
	}
	var rows []Payment
	err := query.
		Order("payments.created_at DESC").
		Order("payments.reservation_id DESC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	payments := make([]booking.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, mapPayment(row))
	}
	return payments, nil
}

func (store *Store) CreateReview(ctx context.Context, review booking.Review) (booking.Review, error) {
	model := Review{
		ReservationID: uint64(review.ReservationID),
		HotelID:       uint64(review.HotelID),
		Rating:        review.Rating.Int(),
		Comment:       review.Comment,
		CreatedAt:     review.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintReviewReservation) {
		return booking.Review{}, wrapStoreError(errorSubjectReview, errorCodeDuplicate, booking.ErrReviewExists)
	}
	if err != nil {
		return booking.Review{}, wrapStoreError(errorSubjectReview, errorCodeCreate, err)
	}
	review.ID = booking.ReviewID(model.ID)
	return review, nil
}

func (store *Store) GetReview(ctx context.Context, reviewID booking.ReviewID) (booking.Review, error) {
	var model Review
	if err := store.db.WithContext(ctx).Where("id = ?", uint64(reviewID)).Take(&model).Error; err != nil {
		return booking.Review{}, notFoundOr(errorSubjectReview, errorCodeGet, err, booking.ErrUnknownReview)
	}
	return mapReview(model)
}

func (store *Store) DeleteReview(ctx context.Context, reviewID booking.ReviewID) error {
	result := store.db.WithContext(ctx).Where("id = ?", uint64(reviewID)).Delete(&Review{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectReview, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReview, errorCodeDelete, booking.ErrUnknownReview)
	}
	return nil
}

func (store *Store) ListReviews(ctx context.Context, filter booking.ReviewFilter) ([]booking.Review, error) {
	query := store.db.WithContext(ctx).Model(&Review{})
	if filter.Rating != 0 {
		query = query.Where("reviews.rating = ?", filter.Rating.Int())
	}
	if filter.HotelID != 0 {
		query = query.Where("reviews.hotel_id = ?", uint64(filter.HotelID))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(reviews.comment) LIKE ?", likePattern(search))
	}
	var rows []Review
	err := query.
		Order("reviews.created_at DESC").
		Order("reviews.id DESC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReview, errorCodeList, err)
	}
	reviews := make([]booking.Review, 0, len(rows))
	for _, row := range rows {
		review, err := mapReview(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReview, errorCodeInvalid, err)
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// SummarizeHotelRatings averages the ratings of reviews recorded against the hotel.
func (store *Store) SummarizeHotelRatings(ctx context.Context, hotelID booking.HotelID) (booking.RatingSummary, error) {
	var summary struct {
		Average *float64
		Count   int64
	}
	err := store.db.WithContext(ctx).
		Model(&Review{}).
		Select("AVG(CAST(rating AS FLOAT)) AS average, COUNT(id) AS count").
		Where("hotel_id = ?", uint64(hotelID)).
		Scan(&summary).Error
	if err != nil {
		return booking.RatingSummary{}, wrapStoreError(errorSubjectHotel, errorCodeAverage, err)
	}
	result := booking.RatingSummary{Count: summary.Count}
	if summary.Average != nil {
		result.Average = *summary.Average
	}
	return result, nil
}

func (store *Store) SetHotelAverageRating(ctx context.Context, hotelID booking.HotelID, average float64) error {
	result := store.db.WithContext(ctx).
		Model(&Hotel{}).
		Where("id = ?", uint64(hotelID)).
		Update("average_rating", average)
	return rowsOrMissing(result, errorSubjectHotel, booking.ErrUnknownHotel)
}

func (store *Store) reservationQuery(ctx context.Context) *gorm.DB {
	return store.db.WithContext(ctx).
		Model(&Reservation{}).
		Preload("User").
		Preload("Room").
		Preload("Payment").
		Preload("Review")
}

func rowsOrMissing(result *gorm.DB, subject string, missing error) error {
	if result.Error != nil {
		return wrapStoreError(subject, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(subject, errorCodeUpdate, missing)
	}
	return nil
}

func applyDateBounds(query *gorm.DB, column string, from *time.Time, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where(column+" >= ?", datatypes.Date(*from))
	}
	if to != nil {
		query = query.Where(column+" <= ?", datatypes.Date(*to))
	}
	return query
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}

func statusStrings(statuses []booking.ReservationStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, status.String())
	}
	return values
}

func mapReservations(rows []Reservation) ([]booking.Reservation, error) {
	reservations := make([]booking.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := mapReservation(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReserving, errorCodeInvalid, err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func mapReservation(model Reservation) (booking.Reservation, error) {
	status, err := booking.ParseReservationStatus(model.Status)
	if err != nil {
		return booking.Reservation{}, err
	}
	total, err := booking.NewMoney(model.TotalPrice)
	if err != nil {
		return booking.Reservation{}, err
	}
	reservation := booking.Reservation{
		ID:         booking.ReservationID(model.ID),
		UserID:     booking.UserID(model.UserID),
		Username:   model.User.Username,
		RoomID:     booking.RoomID(model.RoomID),
		RoomNumber: model.Room.Number,
		HotelID:    booking.HotelID(model.HotelID),
		Stay:       booking.RestoreStayRange(time.Time(model.CheckIn), time.Time(model.CheckOut)),
		TotalPrice: total,
		Status:     status,
		Guest: booking.GuestContact{
			FirstName: model.GuestFirstName,
			LastName:  model.GuestLastName,
			Email:     model.GuestEmail,
			Phone:     model.GuestPhone,
		},
		SpecialRequest: model.SpecialRequest,
		CreatedAt:      model.CreatedAt,
	}
	if model.Payment != nil {
		payment := mapPayment(*model.Payment)
		reservation.Payment = &payment
	}
	if model.Review != nil {
		review, err := mapReview(*model.Review)
		if err != nil {
			return booking.Reservation{}, err
		}
		reservation.Review = &review
	}
	return reservation, nil
}

func mapPayment(model Payment) booking.Payment {
	return booking.Payment{
		ReservationID: booking.ReservationID(model.ReservationID),
		Method:        booking.PaymentMethod(model.Method),
		IsPaid:        model.IsPaid,
		ProofRef:      model.ProofRef,
		PaidAt:        model.PaidAt,
	}
}

func mapReview(model Review) (booking.Review, error) {
	rating, err := booking.NewRating(model.Rating)
	if err != nil {
		return booking.Review{}, err
	}
	return booking.Review{
		ID:            booking.ReviewID(model.ID),
		ReservationID: booking.ReservationID(model.ReservationID),
		HotelID:       booking.HotelID(model.HotelID),
		Rating:        rating,
		Comment:       model.Comment,
		CreatedAt:     model.CreatedAt,
	}, nil
}
