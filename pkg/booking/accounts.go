package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength     = 8
	maxPasswordLength     = 72
	maxUsernameLength     = 150
	maxProfilePhoneLength = 15
	maxAddressLength      = 500

	// RedirectStaff and RedirectCustomer are the post-login landing pages.
	RedirectStaff    = "/admin"
	RedirectCustomer = "/"
)

// placeholderHash keeps unknown-user logins as slow as wrong-password ones.
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.MinCost)

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	Username             string
	Email                string
	FirstName            string
	LastName             string
	Password             string
	PasswordConfirmation string
	Phone                string
	Gender               Gender
	Address              string
}

// LoginResult identifies the authenticated account and where to send it.
type LoginResult struct {
	Account  Account
	Redirect string
}

// Accounts registers and authenticates application users.
type Accounts struct {
	store      AccountStore
	nowFn      func() time.Time
	options    serviceOptions
	bcryptCost int
}

// NewAccounts wires an Accounts service.
func NewAccounts(store AccountStore, clock func() time.Time, options ...ServiceOption) (*Accounts, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: account store dependency is nil", ErrInvalidServiceConfig)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved, err := buildOptions(options)
	if err != nil {
		return nil, err
	}
	return &Accounts{store: store, nowFn: clock, options: resolved, bcryptCost: bcrypt.DefaultCost}, nil
}

// Register creates a user with a profile and sends a welcome email whose failure is only logged.
func (accounts *Accounts) Register(ctx context.Context, input RegistrationInput) (Account, error) {
	var created Account
	operationError := func() error {
		normalized, err := validateRegistration(input)
		if err != nil {
			return err
		}
		var conflicts ValidationErrors
		usernameTaken, err := accounts.store.UsernameTaken(ctx, normalized.Username)
		if err != nil {
			return err
		}
		if usernameTaken {
			conflicts.add("username", ErrDuplicateUsername)
		}
		emailTaken, err := accounts.store.EmailTaken(ctx, normalized.Email)
		if err != nil {
			return err
		}
		if emailTaken {
			conflicts.add("email", ErrDuplicateEmail)
		}
		if err := conflicts.orNil(); err != nil {
			return err
		}
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), accounts.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		created, err = accounts.store.CreateAccount(ctx, NewAccountRecord{
			Username:     normalized.Username,
			Email:        normalized.Email,
			FirstName:    normalized.FirstName,
			LastName:     normalized.LastName,
			PasswordHash: passwordHash,
			Phone:        normalized.Phone,
			Gender:       normalized.Gender,
			Address:      normalized.Address,
			JoinedAt:     accounts.nowFn().UTC(),
		})
		return err
	}()
	entry := OperationLog{
		Operation: operationRegister,
		Actor:     "anonymous",
		UserID:    created.ID,
		Detail:    strings.TrimSpace(input.Username),
		Error:     operationError,
	}
	accounts.options.logOperation(ctx, entry)
	if operationError != nil {
		return Account{}, operationError
	}
	accounts.options.notify(ctx, operationWelcomeNotification, Message{
		To:      created.Email,
		Subject: "Welcome to Hotelbook",
		Text:    fmt.Sprintf("Hi %s,\n\nyour account %s is ready. Happy travels!\n", created.FirstName, created.Username),
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>your account <strong>%s</strong> is ready. Happy travels!</p>", created.FirstName, created.Username),
	}, entry)
	return created, nil
}

// Authenticate checks a username and password; unknown users and wrong passwords are indistinguishable.
func (accounts *Accounts) Authenticate(ctx context.Context, username string, password string) (LoginResult, error) {
	var result LoginResult
	operationError := func() error {
		credentials, err := accounts.store.FindCredentials(ctx, strings.TrimSpace(username))
		if errors.Is(err, ErrUnknownUser) {
			_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword(credentials.PasswordHash, []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		account, err := accounts.store.GetAccount(ctx, credentials.UserID)
		if err != nil {
			return err
		}
		result = LoginResult{Account: account, Redirect: RedirectCustomer}
		if account.IsStaff {
			result.Redirect = RedirectStaff
		}
		return nil
	}()
	accounts.options.logOperation(ctx, OperationLog{
		Operation: operationAuthenticate,
		Actor:     "anonymous",
		UserID:    result.Account.ID,
		Detail:    strings.TrimSpace(username),
		Error:     operationError,
	})
	if operationError != nil {
		return LoginResult{}, operationError
	}
	return result, nil
}

// Profile returns the principal's own account.
func (accounts *Accounts) Profile(ctx context.Context, principal Principal) (Account, error) {
	if err := principal.requireCustomer(); err != nil {
		return Account{}, err
	}
	return accounts.store.GetAccount(ctx, principal.UserID())
}

// ListProfiles lists accounts for the admin console.
func (accounts *Accounts) ListProfiles(ctx context.Context, principal Principal, query ProfileQuery) ([]Account, error) {
	if err := principal.requireStaff(); err != nil {
		return nil, err
	}
	query.Search = strings.TrimSpace(query.Search)
	query.Page = query.Page.Normalize()
	return accounts.store.ListAccounts(ctx, query)
}

func validateRegistration(input RegistrationInput) (RegistrationInput, error) {
	var validationErrors ValidationErrors
	normalized := RegistrationInput{
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
	}
	usernameErr := fieldValidator.Var(normalized.Username, fmt.Sprintf("required,printascii,max=%d", maxUsernameLength))
	if usernameErr != nil || strings.ContainsAny(normalized.Username, " \t") {
		validationErrors.add("username", fmt.Errorf("%w: %q", ErrInvalidUsername, input.Username))
	}
	validationErrors.add("email", ValidateEmail(normalized.Email))
	validationErrors.add("first_name", validateName(normalized.FirstName))
	validationErrors.add("last_name", validateName(normalized.LastName))
	if len(input.Password) < minPasswordLength || len(input.Password) > maxPasswordLength {
		validationErrors.add("password", fmt.Errorf("%w: must be %d to %d characters", ErrInvalidPassword, minPasswordLength, maxPasswordLength))
	} else if input.Password != input.PasswordConfirmation {
		validationErrors.add("password_confirmation", ErrPasswordMismatch)
	}
	if !IsDigits(normalized.Phone) || len(normalized.Phone) > maxProfilePhoneLength {
		validationErrors.add("phone", fmt.Errorf("%w: %q", ErrInvalidPhone, input.Phone))
	}
	gender, err := ParseGender(string(input.Gender))
	validationErrors.add("gender", err)
	normalized.Gender = gender
	if len(normalized.Address) > maxAddressLength {
		validationErrors.add("address", fmt.Errorf("address exceeds %d characters", maxAddressLength))
	}
	if err := validationErrors.orNil(); err != nil {
		return RegistrationInput{}, err
	}
	return normalized, nil
}
