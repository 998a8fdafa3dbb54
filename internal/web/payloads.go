package web

import (
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
)

type hotelPayload struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Region        string   `json:"region"`
	Description   string   `json:"description"`
	StarRating    int      `json:"star_rating"`
	AverageRating float64  `json:"average_rating"`
	FacilityIDs   []uint64 `json:"facility_ids"`
}

type roomTypePayload struct {
	ID          uint64 `json:"id"`
	HotelID     uint64 `json:"hotel_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BasePrice   string `json:"base_price"`
}

type facilityPayload struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type roomPayload struct {
	ID          uint64   `json:"id"`
	HotelID     uint64   `json:"hotel_id"`
	RoomTypeID  uint64   `json:"room_type_id"`
	Number      string   `json:"number"`
	IsAvailable bool     `json:"is_available"`
	NightlyRate string   `json:"nightly_rate"`
	FacilityIDs []uint64 `json:"facility_ids"`
}

type galleryImagePayload struct {
	ID      uint64 `json:"id"`
	HotelID uint64 `json:"hotel_id"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type quotePayload struct {
	Nights    int64  `json:"nights"`
	Subtotal  string `json:"subtotal"`
	Tax       string `json:"tax"`
	Total     string `json:"total"`
	Available bool   `json:"available"`
}

type guestPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type reservationPayload struct {
	ID             uint64          `json:"id"`
	UserID         uint64          `json:"user_id"`
	Username       string          `json:"username,omitempty"`
	HotelID        uint64          `json:"hotel_id"`
	RoomID         uint64          `json:"room_id"`
	RoomNumber     string          `json:"room_number"`
	CheckIn        string          `json:"check_in"`
	CheckOut       string          `json:"check_out"`
	Nights         int64           `json:"nights"`
	TotalPrice     string          `json:"total_price"`
	Status         string          `json:"status"`
	Guest          guestPayload    `json:"guest"`
	SpecialRequest string          `json:"special_request"`
	CreatedAt      time.Time       `json:"created_at"`
	Payment        *paymentPayload `json:"payment,omitempty"`
	Review         *reviewPayload  `json:"review,omitempty"`
}

type paymentPayload struct {
	ReservationID uint64     `json:"reservation_id"`
	Method        string     `json:"method"`
	IsPaid        bool       `json:"is_paid"`
	HasProof      bool       `json:"has_proof"`
	PaidAt        *time.Time `json:"paid_at"`
}

type reviewPayload struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	HotelID       uint64    `json:"hotel_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

type transitionResultPayload struct {
	ReservationID  uint64 `json:"reservation_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Outcome        string `json:"outcome"`
}

type accountPayload struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
	Phone     string    `json:"phone,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Address   string    `json:"address,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

func newHotelPayload(hotel booking.Hotel) hotelPayload {
	return hotelPayload{
		ID:            uint64(hotel.ID),
		Name:          hotel.Name,
		Address:       hotel.Address,
		Region:        hotel.Region.String(),
		Description:   hotel.Description,
		StarRating:    int(hotel.StarRating),
		AverageRating: hotel.AverageRating,
		FacilityIDs:   facilityIDValues(hotel.FacilityIDs),
	}
}

func newRoomTypePayload(roomType booking.RoomType) roomTypePayload {
	return roomTypePayload{
		ID:          uint64(roomType.ID),
		HotelID:     uint64(roomType.HotelID),
		Name:        roomType.Name,
		Description: roomType.Description,
		BasePrice:   roomType.BasePrice.String(),
	}
}

func newFacilityPayload(facility booking.Facility) facilityPayload {
	return facilityPayload{ID: uint64(facility.ID), Name: facility.Name, Icon: facility.Icon}
}

func newRoomPayload(room booking.Room) roomPayload {
	return roomPayload{
		ID:          uint64(room.ID),
		HotelID:     uint64(room.HotelID),
		RoomTypeID:  uint64(room.RoomTypeID),
		Number:      room.Number,
		IsAvailable: room.IsAvailable,
		NightlyRate: room.NightlyRate.String(),
		FacilityIDs: facilityIDValues(room.FacilityIDs),
	}
}

func newGalleryImagePayload(image booking.GalleryImage) galleryImagePayload {
	return galleryImagePayload{
		ID:      uint64(image.ID),
		HotelID: uint64(image.HotelID),
		URL:     "/media/" + image.BlobRef,
		Caption: image.Caption,
	}
}

func newReservationPayload(reservation booking.Reservation) reservationPayload {
	payload := reservationPayload{
		ID:         uint64(reservation.ID),
		UserID:     uint64(reservation.UserID),
		Username:   reservation.Username,
		HotelID:    uint64(reservation.HotelID),
		RoomID:     uint64(reservation.RoomID),
		RoomNumber: reservation.RoomNumber,
		CheckIn:    reservation.Stay.CheckIn().Format(booking.DateLayout),
		CheckOut:   reservation.Stay.CheckOut().Format(booking.DateLayout),
		Nights:     reservation.Stay.Nights(),
		TotalPrice: reservation.TotalPrice.String(),
		Status:     reservation.Status.String(),
		Guest: guestPayload{
			FirstName: reservation.Guest.FirstName,
			LastName:  reservation.Guest.LastName,
			Email:     reservation.Guest.Email,
			Phone:     reservation.Guest.Phone,
		},
		SpecialRequest: reservation.SpecialRequest,
		CreatedAt:      reservation.CreatedAt,
	}
	if reservation.Payment != nil {
		payment := newPaymentPayload(*reservation.Payment)
		payload.Payment = &payment
	}
	if reservation.Review != nil {
		review := newReviewPayload(*reservation.Review)
		payload.Review = &review
	}
	return payload
}

func newPaymentPayload(payment booking.Payment) paymentPayload {
	return paymentPayload{
		ReservationID: uint64(payment.ReservationID),
		Method:        payment.Method.String(),
		IsPaid:        payment.IsPaid,
		HasProof:      payment.ProofRef != "",
		PaidAt:        payment.PaidAt,
	}
}

func newReviewPayload(review booking.Review) reviewPayload {
	return reviewPayload{
		ID:            uint64(review.ID),
		ReservationID: uint64(review.ReservationID),
		HotelID:       uint64(review.HotelID),
		Rating:        review.Rating.Int(),
		Comment:       review.Comment,
		CreatedAt:     review.CreatedAt,
	}
}

func newAccountPayload(account booking.Account) accountPayload {
	payload := accountPayload{
		ID:        uint64(account.ID),
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		IsStaff:   account.IsStaff,
		JoinedAt:  account.JoinedAt,
	}
	if account.Profile != nil {
		payload.Phone = account.Profile.Phone
		payload.Gender = account.Profile.Gender.String()
		payload.Address = account.Profile.Address
	}
	return payload
}

func facilityIDValues(ids []booking.FacilityID) []uint64 {
	values := make([]uint64, 0, len(ids))
	for _, id := range ids {
		values = append(values, uint64(id))
	}
	return values
}

func mapSlice[T any, P any](items []T, convert func(T) P) []P {
	payloads := make([]P, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, convert(item))
	}
	return payloads
}
