package booking

import "time"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum page size.
func (page Page) Normalize() Page {
	if page.Limit <= 0 {
		page.Limit = defaultListLimit
	}
	if page.Limit > maxListLimit {
		page.Limit = maxListLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}

// HotelQuery filters the public hotel list and search.
type HotelQuery struct {
	Name          string
	Region        Region
	MinStarRating StarRating
	Page          Page
}

// RoomQuery filters rooms for the booking form and the admin console.
type RoomQuery struct {
	HotelID    HotelID
	RoomTypeID RoomTypeID
	Available  *bool
	Number     string
	Page       Page
}

// RoomTypeQuery filters room types.
type RoomTypeQuery struct {
	HotelID HotelID
	Name    string
}

// ReservationFilter drives the admin reservation list.
type ReservationFilter struct {
	Statuses     []ReservationStatus
	HotelID      HotelID
	Search       string
	CheckInFrom  *time.Time
	CheckInTo    *time.Time
	CheckOutFrom *time.Time
	CheckOutTo   *time.Time
	Page         Page
}

// PaymentFilter drives the admin payment list.
type PaymentFilter struct {
	IsPaid *bool
	Method PaymentMethod
	Search string
	Page   Page
}

// ReviewFilter drives the admin review list.
type ReviewFilter struct {
	Rating  Rating
	HotelID HotelID
	Search  string
	Page    Page
}

// ProfileQuery drives the admin user profile list.
type ProfileQuery struct {
	Search string
	Gender Gender
	Page   Page
}
