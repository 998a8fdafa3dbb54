package gormstore

import (
	"context"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"gorm.io/gorm"
)

// AccountStore implements booking.AccountStore using GORM.
type AccountStore struct {
	db *gorm.DB
}

// NewAccounts returns an AccountStore backed by gorm.DB.
func NewAccounts(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// CreateAccount inserts the user and its profile in one transaction.
func (store *AccountStore) CreateAccount(ctx context.Context, record booking.NewAccountRecord) (booking.Account, error) {
	model := User{
		Username:     record.Username,
		Email:        record.Email,
		FirstName:    record.FirstName,
		LastName:     record.LastName,
		PasswordHash: record.PasswordHash,
		IsStaff:      record.IsStaff,
		JoinedAt:     record.JoinedAt,
	}
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Omit("Profile").Create(&model).Error; err != nil {
			return err
		}
		profile := UserProfile{
			UserID:  model.ID,
			Phone:   record.Phone,
			Gender:  record.Gender.String(),
			Address: record.Address,
		}
		if err := transaction.Create(&profile).Error; err != nil {
			return err
		}
		model.Profile = &profile
		return nil
	})
	if isUniqueViolation(err, "") {
		return booking.Account{}, store.duplicateAccount(ctx, record.Username)
	}
	if err != nil {
		return booking.Account{}, wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return mapAccount(model), nil
}

func (store *AccountStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return store.exists(ctx, "username = ?", strings.TrimSpace(username))
}

func (store *AccountStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return store.exists(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (store *AccountStore) FindCredentials(ctx context.Context, username string) (booking.Credentials, error) {
	var model User
	err := store.db.WithContext(ctx).
		Select("id", "password_hash", "is_staff").
		Where("username = ?", strings.TrimSpace(username)).
		Take(&model).Error
	if err != nil {
		return booking.Credentials{}, notFoundOr(errorSubjectAccount, errorCodeLookup, err, booking.ErrUnknownUser)
	}
	return booking.Credentials{
		UserID:       booking.UserID(model.ID),
		PasswordHash: model.PasswordHash,
		IsStaff:      model.IsStaff,
	}, nil
}

func (store *AccountStore) GetAccount(ctx context.Context, userID booking.UserID) (booking.Account, error) {
	var model User
	err := store.db.WithContext(ctx).Preload("Profile").Where("id = ?", uint64(userID)).Take(&model).Error
	if err != nil {
		return booking.Account{}, notFoundOr(errorSubjectAccount, errorCodeGet, err, booking.ErrUnknownUser)
	}
	return mapAccount(model), nil
}

// ListAccounts returns users that have a profile, matching the admin profile list.
func (store *AccountStore) ListAccounts(ctx context.Context, query booking.ProfileQuery) ([]booking.Account, error) {
	statement := store.db.WithContext(ctx).
		Model(&User{}).
		Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
		Preload("Profile")
	if query.Search != "" {
		pattern := likePattern(query.Search)
		statement = statement.Where(
			"LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ? OR user_profiles.phone LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if query.Gender != "" {
		statement = statement.Where("user_profiles.gender = ?", query.Gender.String())
	}
	var rows []User
	err := statement.
		Order("users.joined_at DESC").
		Order("users.id DESC").
		Limit(query.Page.Limit).
		Offset(query.Page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	accounts := make([]booking.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, mapAccount(row))
	}
	return accounts, nil
}

// duplicateAccount names the field that lost a concurrent registration race.
func (store *AccountStore) duplicateAccount(ctx context.Context, username string) error {
	taken, err := store.UsernameTaken(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, booking.ErrDuplicateUsername)
	}
	return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, booking.ErrDuplicateEmail)
}

func (store *AccountStore) exists(ctx context.Context, condition string, value string) (bool, error) {
	var count int64
	if err := store.db.WithContext(ctx).Model(&User{}).Where(condition, value).Count(&count).Error; err != nil {
		return false, wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	return count > 0, nil
}

func mapAccount(model User) booking.Account {
	account := booking.Account{
		ID:        booking.UserID(model.ID),
		Username:  model.Username,
		Email:     model.Email,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		IsStaff:   model.IsStaff,
		JoinedAt:  model.JoinedAt,
	}
	if model.Profile != nil {
		account.Profile = &booking.UserProfile{
			Phone:   model.Profile.Phone,
			Gender:  booking.Gender(model.Profile.Gender),
			Address: model.Profile.Address,
		}
	}
	return account
}
