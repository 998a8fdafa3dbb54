package booking

import "time"

// Hotel is the aggregate root for room types, rooms and gallery images.
type Hotel struct {
	ID            HotelID
	Name          string
	Address       string
	Region        Region
	Description   string
	StarRating    StarRating
	AverageRating float64
	FacilityIDs   []FacilityID
	CreatedAt     time.Time
}

// RoomType carries the nightly base price shared by its rooms.
type RoomType struct {
	ID          RoomTypeID
	HotelID     HotelID
	Name        string
	Description string
	BasePrice   Money
}

// Facility is an amenity attached to rooms and hotels.
type Facility struct {
	ID   FacilityID
	Name string
	Icon string
}

// Room is a bookable unit; IsAvailable says whether it is offered at all, not whether dates are free.
type Room struct {
	ID          RoomID
	HotelID     HotelID
	RoomTypeID  RoomTypeID
	Number      string
	IsAvailable bool
	FacilityIDs []FacilityID
	NightlyRate Money
}

// GalleryImage references an uploaded hotel photo.
type GalleryImage struct {
	ID        GalleryImageID
	HotelID   HotelID
	BlobRef   string
	Caption   string
	CreatedAt time.Time
}

// Reservation is the aggregate root for its payment and review.
type Reservation struct {
	ID             ReservationID
	UserID         UserID
	Username       string
	RoomID         RoomID
	RoomNumber     string
	HotelID        HotelID
	Stay           StayRange
	TotalPrice     Money
	Status         ReservationStatus
	Guest          GuestContact
	SpecialRequest string
	CreatedAt      time.Time
	Payment        *Payment
	Review         *Review
}

// Payment records how a reservation was paid; PaidAt is set exactly when IsPaid becomes true.
type Payment struct {
	ReservationID ReservationID
	Method        PaymentMethod
	IsPaid        bool
	ProofRef      string
	PaidAt        *time.Time
}

// Review is a guest's rating of a completed stay.
type Review struct {
	ID            ReviewID
	ReservationID ReservationID
	HotelID       HotelID
	Rating        Rating
	Comment       string
	CreatedAt     time.Time
}

// StatusChange is one audited lifecycle step.
type StatusChange struct {
	ReservationID ReservationID
	From          ReservationStatus
	To            ReservationStatus
	Actor         string
	Reason        string
	At            time.Time
}

// RatingSummary is the aggregate over a hotel's reviews.
type RatingSummary struct {
	Average float64
	Count   int64
}

// Account is an application user with an optional profile.
type Account struct {
	ID        UserID
	Username  string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
	Profile   *UserProfile
	JoinedAt  time.Time
}

// UserProfile holds contact details collected at registration.
type UserProfile struct {
	Phone   string
	Gender  Gender
	Address string
}

// Credentials is the login lookup result.
type Credentials struct {
	UserID       UserID
	PasswordHash []byte
	IsStaff      bool
}

// NewAccountRecord is what Accounts hands to the store after validation and hashing.
type NewAccountRecord struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Phone        string
	Gender       Gender
	Address      string
	IsStaff      bool
	JoinedAt     time.Time
}
