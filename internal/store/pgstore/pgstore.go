package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgExclusionViolationCode = "23P01"
	errorOperationStore      = "store"
	errorSubjectConstraint   = "overlap_constraint"
	errorSubjectReservation  = "reservation"
	errorSubjectTransaction  = "transaction"
	errorCodeBegin           = "begin"
	errorCodeCommit          = "commit"
	errorCodeConnect         = "connect"
	errorCodeExtension       = "extension"
	errorCodeInstall         = "install"
	errorCodeList            = "list"
	errorCodeLookup          = "lookup"
	errorCodePing            = "ping"

	sqlCreateExtension = `create extension if not exists btree_gist`

	sqlConstraintExists = `
		select exists(
			select 1 from pg_constraint
			where conname = $1 and conrelid = 'reservations'::regclass
		)
	`

	sqlListActiveOverlaps = `
		select first.id, second.id, first.room_id, greatest(first.check_in, second.check_in), least(first.check_out, second.check_out)
		from reservations first
		join reservations second
			on second.room_id = first.room_id
			and second.id > first.id
			and second.check_in < first.check_out
			and second.check_out > first.check_in
		where first.status = any($1) and second.status = any($1)
		order by first.room_id, first.id, second.id
	`
)

// ErrOverlapsPresent reports active reservations that already collide and block the constraint.
var ErrOverlapsPresent = errors.New("active reservations overlap")

// Overlap is a pair of active reservations holding the same room on shared nights.
type Overlap struct {
	FirstID  booking.ReservationID
	SecondID booking.ReservationID
	RoomID   booking.RoomID
	From     time.Time
	Until    time.Time
}

// Store runs Postgres-only maintenance that GORM migrations cannot express.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgx pool and verifies it answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeConnect, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapStoreError(errorSubjectTransaction, errorCodePing, err)
	}
	return pool, nil
}

// WithTx executes fn inside a transaction, rolling back on error.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

// EnsureOverlapConstraint installs the exclusion constraint that rejects two active
// reservations of one room with intersecting [check_in, check_out) ranges.
// It reports whether the constraint was added by this call.
func (store *Store) EnsureOverlapConstraint(ctx context.Context) (bool, error) {
	installed := false
	err := store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlCreateExtension); err != nil {
			return wrapStoreError(errorSubjectConstraint, errorCodeExtension, err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, sqlConstraintExists, gormstore.ConstraintReservationOverlap).Scan(&exists); err != nil {
			return wrapStoreError(errorSubjectConstraint, errorCodeLookup, err)
		}
		if exists {
			return nil
		}
		overlaps, err := listActiveOverlaps(ctx, tx)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return wrapStoreError(errorSubjectConstraint, errorCodeInstall, fmt.Errorf("%w: %d pairs", ErrOverlapsPresent, len(overlaps)))
		}
		if _, err := tx.Exec(ctx, overlapConstraintSQL(gormstore.ConstraintReservationOverlap, booking.ActiveStatuses())); err != nil {
			if isExclusionViolation(err) {
				return wrapStoreError(errorSubjectConstraint, errorCodeInstall, ErrOverlapsPresent)
			}
			return wrapStoreError(errorSubjectConstraint, errorCodeInstall, err)
		}
		installed = true
		return nil
	})
	return installed, err
}

// ListActiveOverlaps returns every pair of active reservations that double-books a room.
func (store *Store) ListActiveOverlaps(ctx context.Context) ([]Overlap, error) {
	var overlaps []Overlap
	err := store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		found, err := listActiveOverlaps(ctx, tx)
		overlaps = found
		return err
	})
	return overlaps, err
}

func listActiveOverlaps(ctx context.Context, tx pgx.Tx) ([]Overlap, error) {
	rows, err := tx.Query(ctx, sqlListActiveOverlaps, statusValues(booking.ActiveStatuses()))
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	overlaps := make([]Overlap, 0)
	for rows.Next() {
		var (
			firstID  int64
			secondID int64
			roomID   int64
			from     time.Time
			until    time.Time
		)
		if err := rows.Scan(&firstID, &secondID, &roomID, &from, &until); err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
		}
		overlaps = append(overlaps, Overlap{
			FirstID:  booking.ReservationID(firstID),
			SecondID: booking.ReservationID(secondID),
			RoomID:   booking.RoomID(roomID),
			From:     from,
			Until:    until,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return overlaps, nil
}

// overlapConstraintSQL renders the DDL; daterange defaults to the half-open '[)' bound.
func overlapConstraintSQL(name string, statuses []booking.ReservationStatus) string {
	quoted := make([]string, 0, len(statuses))
	for _, status := range statuses {
		quoted = append(quoted, "'"+strings.ReplaceAll(status.String(), "'", "''")+"'")
	}
	return fmt.Sprintf(
		"alter table reservations add constraint %s exclude using gist (room_id with =, daterange(check_in, check_out, '[)') with &&) where (status in (%s))",
		pgx.Identifier{name}.Sanitize(),
		strings.Join(quoted, ", "),
	)
}

func statusValues(statuses []booking.ReservationStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, status.String())
	}
	return values
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolationCode
	}
	return false
}
