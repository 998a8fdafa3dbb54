package booking

import "context"

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetRoom(ctx context.Context, roomID RoomID) (Room, error)
	// LockRoom loads the room and holds a write lock on it until the transaction ends.
	LockRoom(ctx context.Context, roomID RoomID) (Room, error)
	CountOverlapping(ctx context.Context, roomID RoomID, stay StayRange, statuses []ReservationStatus, exclude ReservationID) (int64, error)
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error)
	ListUserReservations(ctx context.Context, userID UserID, page Page) ([]Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// UpdateReservationStatus moves from -> to and fails with ErrStatusConflict when the row is no longer in from.
	UpdateReservationStatus(ctx context.Context, reservationID ReservationID, from, to ReservationStatus) error
	UpdateReservationStay(ctx context.Context, reservationID ReservationID, stay StayRange, total Money) error
	UpdateReservationTotal(ctx context.Context, reservationID ReservationID, total Money) error
	RecordStatusChange(ctx context.Context, change StatusChange) error
	GetPayment(ctx context.Context, reservationID ReservationID) (Payment, error)
	SavePayment(ctx context.Context, payment Payment) error
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	CreateReview(ctx context.Context, review Review) (Review, error)
	GetReview(ctx context.Context, reviewID ReviewID) (Review, error)
	DeleteReview(ctx context.Context, reviewID ReviewID) error
	ListReviews(ctx context.Context, filter ReviewFilter) ([]Review, error)
	SummarizeHotelRatings(ctx context.Context, hotelID HotelID) (RatingSummary, error)
	SetHotelAverageRating(ctx context.Context, hotelID HotelID, average float64) error
}

// CatalogStore is the persistence contract used by Catalog.
type CatalogStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore CatalogStore) error) error
	CreateHotel(ctx context.Context, hotel Hotel) (Hotel, error)
	UpdateHotel(ctx context.Context, hotel Hotel) error
	GetHotel(ctx context.Context, hotelID HotelID) (Hotel, error)
	SearchHotels(ctx context.Context, query HotelQuery) ([]Hotel, error)
	SetHotelFacilities(ctx context.Context, hotelID HotelID, facilityIDs []FacilityID) error
	CreateRoomType(ctx context.Context, roomType RoomType) (RoomType, error)
	UpdateRoomType(ctx context.Context, roomType RoomType) error
	GetRoomType(ctx context.Context, roomTypeID RoomTypeID) (RoomType, error)
	ListRoomTypes(ctx context.Context, query RoomTypeQuery) ([]RoomType, error)
	CreateFacility(ctx context.Context, facility Facility) (Facility, error)
	ListFacilities(ctx context.Context, name string) ([]Facility, error)
	CountFacilities(ctx context.Context, facilityIDs []FacilityID) (int64, error)
	RoomNumberTaken(ctx context.Context, hotelID HotelID, number string, exclude RoomID) (bool, error)
	CreateRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, roomID RoomID) (Room, error)
	ListRooms(ctx context.Context, query RoomQuery) ([]Room, error)
	AddGalleryImage(ctx context.Context, image GalleryImage) (GalleryImage, error)
	ListGalleryImages(ctx context.Context, hotelID HotelID) ([]GalleryImage, error)
}

// AccountStore is the persistence contract used by Accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, record NewAccountRecord) (Account, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	FindCredentials(ctx context.Context, username string) (Credentials, error)
	GetAccount(ctx context.Context, userID UserID) (Account, error)
	ListAccounts(ctx context.Context, query ProfileQuery) ([]Account, error)
}

// Notifier delivers outbound email. Callers treat failures as warnings.
type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
