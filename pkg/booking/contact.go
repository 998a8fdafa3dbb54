package booking

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength  = 100
	maxPhoneLength = 20
)

var fieldValidator = validator.New()

// GuestContact is captured on the reservation at booking time and never follows later profile edits.
type GuestContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// NewGuestContact validates and normalizes the guest fields of a reservation form.
func NewGuestContact(firstName string, lastName string, email string, phone string) (GuestContact, error) {
	var validationErrors ValidationErrors
	contact := GuestContact{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Phone:     strings.TrimSpace(phone),
	}
	validationErrors.add("first_name", validateName(contact.FirstName))
	validationErrors.add("last_name", validateName(contact.LastName))
	validationErrors.add("email", ValidateEmail(contact.Email))
	validationErrors.add("phone", ValidatePhone(contact.Phone))
	if err := validationErrors.orNil(); err != nil {
		return GuestContact{}, err
	}
	return contact, nil
}

// ValidateEmail checks the address syntax.
func ValidateEmail(email string) error {
	if err := fieldValidator.Var(email, "required,email,max=254"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// ValidatePhone accepts digits only, up to twenty of them.
func ValidatePhone(phone string) error {
	if phone == "" || len(phone) > maxPhoneLength || !IsDigits(phone) {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return nil
}

// IsDigits reports whether value is non-empty and made of ASCII digits.
func IsDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, character := range value {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
