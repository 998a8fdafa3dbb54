package booking

import (
	"fmt"
	"strings"
)

// Principal is the request-scoped identity every operation is performed on behalf of.
type Principal struct {
	userID       UserID
	staffSubject string
}

// NewCustomerPrincipal identifies a signed-in application user.
func NewCustomerPrincipal(userID UserID) (Principal, error) {
	if userID == 0 {
		return Principal{}, fmt.Errorf("%w: missing user", ErrUnauthenticated)
	}
	return Principal{userID: userID}, nil
}

// NewStaffPrincipal identifies an administrative console operator.
func NewStaffPrincipal(subject string, userID UserID) (Principal, error) {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return Principal{}, fmt.Errorf("%w: missing staff subject", ErrUnauthenticated)
	}
	return Principal{userID: userID, staffSubject: trimmed}, nil
}

// UserID returns the application account, zero for console-only operators.
func (principal Principal) UserID() UserID {
	return principal.userID
}

// IsStaff reports whether the principal may use administrative operations.
func (principal Principal) IsStaff() bool {
	return principal.staffSubject != ""
}

// Subject is a printable identity for audit logs.
func (principal Principal) Subject() string {
	if principal.staffSubject != "" {
		return "staff:" + principal.staffSubject
	}
	if principal.userID != 0 {
		return fmt.Sprintf("user:%d", principal.userID)
	}
	return "anonymous"
}

func (principal Principal) requireCustomer() error {
	if principal.userID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func (principal Principal) requireStaff() error {
	if principal.staffSubject == "" && principal.userID == 0 {
		return ErrUnauthenticated
	}
	if principal.staffSubject == "" {
		return ErrForbidden
	}
	return nil
}

// canSee is false for other users' records, which callers report as not found.
func (principal Principal) canSee(owner UserID) bool {
	return principal.IsStaff() || (principal.userID != 0 && principal.userID == owner)
}

func (principal Principal) requireCustomerOrStaff() error {
	if principal.staffSubject == "" && principal.userID == 0 {
		return ErrUnauthenticated
	}
	return nil
}
