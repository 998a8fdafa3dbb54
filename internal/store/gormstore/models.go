package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// User mirrors the users table.
type User struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement"`
	Username     string       `gorm:"size:150;not null;uniqueIndex:idx_users_username"`
	Email        string       `gorm:"size:254;not null;uniqueIndex:idx_users_email"`
	FirstName    string       `gorm:"size:100;not null"`
	LastName     string       `gorm:"size:100;not null"`
	PasswordHash []byte       `gorm:"not null"`
	IsStaff      bool         `gorm:"not null;default:false"`
	Profile      *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	JoinedAt     time.Time    `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// UserProfile mirrors the user_profiles table.
type UserProfile struct {
	UserID  uint64 `gorm:"primaryKey"`
	Phone   string `gorm:"size:15;not null;index"`
	Gender  string `gorm:"size:1;not null"`
	Address string `gorm:"type:text"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// Facility mirrors the facilities table.
type Facility struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;not null"`
	Icon string `gorm:"size:50"`
}

func (Facility) TableName() string { return "facilities" }

// Hotel mirrors the hotels table. AverageRating is derived from reviews.
type Hotel struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	Name          string     `gorm:"size:200;not null;index"`
	Address       string     `gorm:"type:text"`
	Region        string     `gorm:"size:20;not null;index"`
	Description   string     `gorm:"type:text"`
	StarRating    int        `gorm:"not null;default:0"`
	AverageRating float64    `gorm:"not null;default:0"`
	Facilities    []Facility `gorm:"many2many:hotel_facilities;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time  `gorm:"not null"`
}

func (Hotel) TableName() string { return "hotels" }

// RoomType mirrors the room_types table.
type RoomType struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	HotelID     uint64          `gorm:"not null;index"`
	Hotel       Hotel           `gorm:"constraint:OnDelete:CASCADE"`
	Name        string          `gorm:"size:100;not null"`
	Description string          `gorm:"type:text"`
	BasePrice   decimal.Decimal `gorm:"type:numeric(12,3);not null"`
}

func (RoomType) TableName() string { return "room_types" }

// Room mirrors the rooms table; the number is unique within a hotel.
type Room struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	HotelID     uint64     `gorm:"not null;uniqueIndex:idx_rooms_hotel_number,priority:1"`
	RoomTypeID  uint64     `gorm:"not null;index"`
	RoomType    RoomType   `gorm:"constraint:OnDelete:CASCADE"`
	Number      string     `gorm:"size:10;not null;uniqueIndex:idx_rooms_hotel_number,priority:2"`
	IsAvailable bool       `gorm:"not null"`
	Facilities  []Facility `gorm:"many2many:room_facilities;constraint:OnDelete:CASCADE"`
}

func (Room) TableName() string { return "rooms" }

// GalleryImage mirrors the gallery_images table.
type GalleryImage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	HotelID   uint64    `gorm:"not null;index"`
	BlobRef   string    `gorm:"size:500;not null"`
	Caption   string    `gorm:"size:200"`
	CreatedAt time.Time `gorm:"not null"`
}

func (GalleryImage) TableName() string { return "gallery_images" }

// Reservation mirrors the reservations table. Guest fields are a snapshot taken at booking time.
type Reservation struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	UserID         uint64          `gorm:"not null;index"`
	User           User            `gorm:"constraint:OnDelete:CASCADE"`
	RoomID         uint64          `gorm:"not null;index:idx_reservations_room_stay,priority:1"`
	Room           Room            `gorm:"constraint:OnDelete:CASCADE"`
	HotelID        uint64          `gorm:"not null;index"`
	CheckIn        datatypes.Date  `gorm:"not null;index:idx_reservations_room_stay,priority:2"`
	CheckOut       datatypes.Date  `gorm:"not null;index:idx_reservations_room_stay,priority:3"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(14,3);not null"`
	Status         string          `gorm:"size:20;not null;index"`
	GuestFirstName string          `gorm:"size:100;not null"`
	GuestLastName  string          `gorm:"size:100;not null"`
	GuestEmail     string          `gorm:"size:254;not null"`
	GuestPhone     string          `gorm:"size:20;not null"`
	SpecialRequest string          `gorm:"type:text"`
	Payment        *Payment        `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Review         *Review         `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"not null;index"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

// Payment mirrors the payments table; one row per reservation.
type Payment struct {
	ReservationID uint64     `gorm:"primaryKey"`
	Method        string     `gorm:"size:20;not null"`
	IsPaid        bool       `gorm:"not null;default:false;index"`
	ProofRef      string     `gorm:"size:500"`
	PaidAt        *time.Time `gorm:""`
	CreatedAt     time.Time  `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Review mirrors the reviews table; one row per reservation.
type Review struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	ReservationID uint64    `gorm:"not null;uniqueIndex:idx_reviews_reservation"`
	HotelID       uint64    `gorm:"not null;index"`
	Rating        int       `gorm:"not null"`
	Comment       string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null;<-:create"`
}

func (Review) TableName() string { return "reviews" }

// StatusChange mirrors the reservation_status_changes audit table.
type StatusChange struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	ReservationID uint64         `gorm:"not null;index"`
	FromStatus    string         `gorm:"size:20"`
	ToStatus      string         `gorm:"size:20;not null"`
	Actor         string         `gorm:"size:200;not null"`
	Detail        datatypes.JSON `gorm:"not null"`
	ChangedAt     time.Time      `gorm:"not null"`
}

func (StatusChange) TableName() string { return "reservation_status_changes" }

// Session mirrors the sessions table used by the database session backend.
type Session struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	Values    datatypes.JSON `gorm:"column:bag;not null"`
	ExpiresAt time.Time      `gorm:"not null;index"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (Session) TableName() string { return "sessions" }

// Models lists every table for AutoMigrate in dependency order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&Facility{},
		&Hotel{},
		&RoomType{},
		&Room{},
		&GalleryImage{},
		&Reservation{},
		&Payment{},
		&Review{},
		&StatusChange{},
		&Session{},
	}
}
