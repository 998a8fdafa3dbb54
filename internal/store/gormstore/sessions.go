package gormstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore implements session.Store on the sessions table.
type SessionStore struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewSessions returns a SessionStore; clock decides expiry.
func NewSessions(db *gorm.DB, clock func() time.Time) *SessionStore {
	return &SessionStore{db: db, nowFn: clock}
}

func (store *SessionStore) Load(ctx context.Context, id string) (session.Values, error) {
	var model Session
	err := store.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, store.nowFn().UTC()).
		Take(&model).Error
	if err != nil {
		return nil, notFoundOr(errorSubjectSession, errorCodeGet, err, session.ErrSessionNotFound)
	}
	values := session.Values{}
	if err := json.Unmarshal(model.Values, &values); err != nil {
		return nil, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	return values, nil
}

func (store *SessionStore) Save(ctx context.Context, id string, values session.Values, ttl time.Duration) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	now := store.nowFn().UTC()
	model := Session{
		ID:        id,
		Values:    datatypes.JSON(payload),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	err = store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bag", "expires_at"}),
	}).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeSave, err)
	}
	return nil
}

// Delete removes the row in a single statement.
func (store *SessionStore) Delete(ctx context.Context, id string) error {
	if err := store.db.WithContext(ctx).Where("id = ?", id).Delete(&Session{}).Error; err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeDelete, err)
	}
	return nil
}

// PurgeExpired drops sessions past their expiry and reports how many went.
func (store *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := store.db.WithContext(ctx).Where("expires_at <= ?", store.nowFn().UTC()).Delete(&Session{})
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectSession, errorCodeDelete, result.Error)
	}
	return result.RowsAffected, nil
}
