package gormstore

import (
	"errors"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode    = "23505"
	pgExclusionViolationCode = "23P01"
	sqliteConstraintCode     = 19

	// ConstraintReservationOverlap names the Postgres exclusion constraint installed by pgstore.
	ConstraintReservationOverlap = "reservations_no_active_overlap"
	constraintRoomNumber         = "idx_rooms_hotel_number"
	constraintReviewReservation  = "idx_reviews_reservation"

	errorOperationStore   = "store"
	errorSubjectAccount   = "user"
	errorSubjectFacility  = "facility"
	errorSubjectGallery   = "gallery_image"
	errorSubjectHotel     = "hotel"
	errorSubjectPayment   = "payment"
	errorSubjectReview    = "review"
	errorSubjectRoom      = "room"
	errorSubjectRoomType  = "room_type"
	errorSubjectSession   = "session"
	errorSubjectStatus    = "status_change"
	errorSubjectReserving = "reservation"
	errorCodeAverage      = "average"
	errorCodeCount        = "count"
	errorCodeCreate       = "create"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeLock         = "lock"
	errorCodeLookup       = "lookup"
	errorCodeOverlap      = "overlap"
	errorCodeSave         = "save"
	errorCodeUpdate       = "update"
	errorCodeUpdateStatus = "update_status"
)

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

// notFoundOr maps gorm.ErrRecordNotFound to the domain sentinel.
func notFoundOr(subject string, code string, err error, missing error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapStoreError(subject, code, missing)
	}
	return wrapStoreError(subject, code, err)
}

// isUniqueViolation matches a unique-constraint failure. Postgres reports the constraint name;
// SQLite only reports the constraint class, so any constraint failure matches there.
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolationCode && pgErr.ConstraintName == ConstraintReservationOverlap
	}
	return false
}
