package booking

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for check-in and check-out dates.
const DateLayout = "2006-01-02"

const minimumNights = 1

// StayRange is a half-open date range [check-in, check-out).
type StayRange struct {
	checkIn  time.Time
	checkOut time.Time
}

// NewStayRange truncates both ends to UTC calendar dates and requires check-out after check-in.
func NewStayRange(checkIn time.Time, checkOut time.Time) (StayRange, error) {
	normalizedCheckIn := calendarDate(checkIn)
	normalizedCheckOut := calendarDate(checkOut)
	if !normalizedCheckOut.After(normalizedCheckIn) {
		return StayRange{}, fmt.Errorf("%w: %s..%s", ErrInvalidStayRange, normalizedCheckIn.Format(DateLayout), normalizedCheckOut.Format(DateLayout))
	}
	return StayRange{checkIn: normalizedCheckIn, checkOut: normalizedCheckOut}, nil
}

// ParseStayRange parses two YYYY-MM-DD values, reporting each malformed field separately.
func ParseStayRange(rawCheckIn string, rawCheckOut string) (StayRange, error) {
	var validationErrors ValidationErrors
	checkIn, checkInErr := ParseDate(rawCheckIn)
	validationErrors.add("check_in", checkInErr)
	checkOut, checkOutErr := ParseDate(rawCheckOut)
	validationErrors.add("check_out", checkOutErr)
	if err := validationErrors.orNil(); err != nil {
		return StayRange{}, err
	}
	stay, err := NewStayRange(checkIn, checkOut)
	if err != nil {
		return StayRange{}, ValidationErrors{{Field: "check_out", Err: err}}
	}
	return stay, nil
}

// ParseDate parses a YYYY-MM-DD value as a UTC calendar date.
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	parsed, err := time.ParseInLocation(DateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, trimmed)
	}
	return parsed, nil
}

// RestoreStayRange rebuilds a stored range without re-validating its ordering.
func RestoreStayRange(checkIn time.Time, checkOut time.Time) StayRange {
	return StayRange{checkIn: calendarDate(checkIn), checkOut: calendarDate(checkOut)}
}

// CheckIn returns the first night.
func (stay StayRange) CheckIn() time.Time {
	return stay.checkIn
}

// CheckOut returns the departure date, which is not a booked night.
func (stay StayRange) CheckOut() time.Time {
	return stay.checkOut
}

// Nights is check-out minus check-in in whole days, never less than one.
func (stay StayRange) Nights() int64 {
	nights := int64(stay.checkOut.Sub(stay.checkIn).Hours() / 24)
	if nights < minimumNights {
		return minimumNights
	}
	return nights
}

// Overlaps applies the half-open test, so a shared check-out/check-in date is not a conflict.
func (stay StayRange) Overlaps(other StayRange) bool {
	return stay.checkIn.Before(other.checkOut) && stay.checkOut.After(other.checkIn)
}

func (stay StayRange) String() string {
	return stay.checkIn.Format(DateLayout) + ".." + stay.checkOut.Format(DateLayout)
}

func calendarDate(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
