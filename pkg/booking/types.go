package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// UserID identifies an application account.
type UserID uint64

// HotelID identifies a hotel.
type HotelID uint64

// RoomTypeID identifies a room type.
type RoomTypeID uint64

// RoomID identifies a room.
type RoomID uint64

// FacilityID identifies a facility.
type FacilityID uint64

// ReservationID identifies a reservation.
type ReservationID uint64

// ReviewID identifies a review.
type ReviewID uint64

// GalleryImageID identifies a hotel gallery image.
type GalleryImageID uint64

// NewUserID validates a user id.
func NewUserID(raw uint64) (UserID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidUserID)
	}
	return UserID(raw), nil
}

// NewHotelID validates a hotel id.
func NewHotelID(raw uint64) (HotelID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidHotelID)
	}
	return HotelID(raw), nil
}

// NewRoomTypeID validates a room type id.
func NewRoomTypeID(raw uint64) (RoomTypeID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidRoomTypeID)
	}
	return RoomTypeID(raw), nil
}

// NewRoomID validates a room id.
func NewRoomID(raw uint64) (RoomID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidRoomID)
	}
	return RoomID(raw), nil
}

// NewFacilityID validates a facility id.
func NewFacilityID(raw uint64) (FacilityID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidFacilityID)
	}
	return FacilityID(raw), nil
}

// NewReservationID validates a reservation id.
func NewReservationID(raw uint64) (ReservationID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidReservationID)
	}
	return ReservationID(raw), nil
}

// NewReviewID validates a review id.
func NewReviewID(raw uint64) (ReviewID, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidReviewID)
	}
	return ReviewID(raw), nil
}

// ParseHotelID parses a path or form value.
func ParseHotelID(raw string) (HotelID, error) {
	value, err := parseIdentifier(raw, ErrInvalidHotelID)
	if err != nil {
		return 0, err
	}
	return NewHotelID(value)
}

// ParseRoomTypeID parses a path or form value.
func ParseRoomTypeID(raw string) (RoomTypeID, error) {
	value, err := parseIdentifier(raw, ErrInvalidRoomTypeID)
	if err != nil {
		return 0, err
	}
	return NewRoomTypeID(value)
}

// ParseRoomID parses a path or form value.
func ParseRoomID(raw string) (RoomID, error) {
	value, err := parseIdentifier(raw, ErrInvalidRoomID)
	if err != nil {
		return 0, err
	}
	return NewRoomID(value)
}

// ParseFacilityID parses a path or form value.
func ParseFacilityID(raw string) (FacilityID, error) {
	value, err := parseIdentifier(raw, ErrInvalidFacilityID)
	if err != nil {
		return 0, err
	}
	return NewFacilityID(value)
}

// ParseReservationID parses a path or form value.
func ParseReservationID(raw string) (ReservationID, error) {
	value, err := parseIdentifier(raw, ErrInvalidReservationID)
	if err != nil {
		return 0, err
	}
	return NewReservationID(value)
}

// ParseReviewID parses a path or form value.
func ParseReviewID(raw string) (ReviewID, error) {
	value, err := parseIdentifier(raw, ErrInvalidReviewID)
	if err != nil {
		return 0, err
	}
	return NewReviewID(value)
}

func parseIdentifier(raw string, kind error) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", kind)
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a positive integer", kind, trimmed)
	}
	return value, nil
}

// Region enumerates the city/region labels a hotel may be listed under.
type Region string

const (
	RegionJakarta    Region = "JAKARTA"
	RegionBandung    Region = "BANDUNG"
	RegionSurabaya   Region = "SURABAYA"
	RegionYogyakarta Region = "YOGYAKARTA"
	RegionSemarang   Region = "SEMARANG"
	RegionBali       Region = "BALI"
	RegionMedan      Region = "MEDAN"
	RegionMakassar   Region = "MAKASSAR"
	RegionLombok     Region = "LOMBOK"
	RegionMalang     Region = "MALANG"
)

var knownRegions = []Region{
	RegionJakarta, RegionBandung, RegionSurabaya, RegionYogyakarta, RegionSemarang,
	RegionBali, RegionMedan, RegionMakassar, RegionLombok, RegionMalang,
}

// Regions lists every supported region in display order.
func Regions() []Region {
	return append([]Region(nil), knownRegions...)
}

// ParseRegion validates a region label (case-insensitive).
func ParseRegion(raw string) (Region, error) {
	normalized := Region(strings.ToUpper(strings.TrimSpace(raw)))
	for _, region := range knownRegions {
		if region == normalized {
			return region, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRegion, raw)
}

func (region Region) String() string {
	return string(region)
}

// Gender is the profile gender code captured at registration.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ParseGender validates a gender code.
func ParseGender(raw string) (Gender, error) {
	switch Gender(strings.ToUpper(strings.TrimSpace(raw))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGender, raw)
	}
}

func (gender Gender) String() string {
	return string(gender)
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodEWallet      PaymentMethod = "E_WALLET"
)

// ParsePaymentMethod validates a payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(raw))) {
	case PaymentMethodBankTransfer:
		return PaymentMethodBankTransfer, nil
	case PaymentMethodEWallet:
		return PaymentMethodEWallet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
	}
}

func (method PaymentMethod) String() string {
	return string(method)
}

// Rating is a review score from 1 to 5 inclusive.
type Rating int

const (
	minRating = 1
	maxRating = 5
)

// NewRating validates a review score.
func NewRating(raw int) (Rating, error) {
	if raw < minRating || raw > maxRating {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRating, raw)
	}
	return Rating(raw), nil
}

// Int returns the raw score.
func (rating Rating) Int() int {
	return int(rating)
}

// StarRating is a hotel's advertised class from 0 to 5.
type StarRating int

// NewStarRating validates a hotel class.
func NewStarRating(raw int) (StarRating, error) {
	if raw < 0 || raw > 5 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidStarRating, raw)
	}
	return StarRating(raw), nil
}
