package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var errMalformedBody = errors.New("malformed request body")

type registerRequest struct {
	Username             string `json:"username" binding:"required,max=150"`
	Email                string `json:"email" binding:"required,email"`
	FirstName            string `json:"first_name" binding:"required,max=100"`
	LastName             string `json:"last_name" binding:"required,max=100"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
	Phone                string `json:"phone" binding:"required,digits,max=15"`
	Gender               string `json:"gender" binding:"required,oneof=M F"`
	Address              string `json:"address" binding:"max=500"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type reservationRequest struct {
	HotelID        uint64 `json:"hotel_id" binding:"required"`
	RoomID         uint64 `json:"room_id" binding:"required"`
	CheckIn        string `json:"check_in" binding:"required"`
	CheckOut       string `json:"check_out" binding:"required"`
	FirstName      string `json:"first_name" binding:"required,max=100"`
	LastName       string `json:"last_name" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required,digits,max=20"`
	SpecialRequest string `json:"special_request" binding:"max=2000"`
}

type stayRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

type hotelRequest struct {
	Name        string   `json:"name" binding:"required,max=200"`
	Address     string   `json:"address" binding:"required"`
	Region      string   `json:"region" binding:"required"`
	Description string   `json:"description"`
	StarRating  int      `json:"star_rating" binding:"min=0,max=5"`
	FacilityIDs []uint64 `json:"facility_ids"`
}

type roomTypeRequest struct {
	HotelID     uint64 `json:"hotel_id" binding:"required"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	BasePrice   string `json:"base_price" binding:"required"`
}

type facilityRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Icon string `json:"icon" binding:"max=100"`
}

type roomRequest struct {
	HotelID     uint64   `json:"hotel_id" binding:"required"`
	RoomTypeID  uint64   `json:"room_type_id" binding:"required"`
	Number      string   `json:"number" binding:"required,max=10"`
	IsAvailable *bool    `json:"is_available"`
	FacilityIDs []uint64 `json:"facility_ids"`
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type bulkTransitionRequest struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	Status         string   `json:"status" binding:"required"`
}

// bindJSON keeps validator failures intact for field reporting and wraps decode failures.
func bindJSON(ctx *gin.Context, target any) error {
	err := ctx.ShouldBindJSON(target)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return validationErrors
	}
	return fmt.Errorf("%w: %v", errMalformedBody, err)
}

func (request reservationRequest) toDomain() (booking.ReservationRequest, error) {
	var validationErrors booking.ValidationErrors
	stay, stayErr := booking.ParseStayRange(request.CheckIn, request.CheckOut)
	var stayErrors booking.ValidationErrors
	if errors.As(stayErr, &stayErrors) {
		validationErrors = append(validationErrors, stayErrors...)
	}
	guest, guestErr := booking.NewGuestContact(request.FirstName, request.LastName, request.Email, request.Phone)
	var guestErrors booking.ValidationErrors
	if errors.As(guestErr, &guestErrors) {
		validationErrors = append(validationErrors, guestErrors...)
	}
	if len(validationErrors) > 0 {
		return booking.ReservationRequest{}, validationErrors
	}
	return booking.ReservationRequest{
		HotelID:        booking.HotelID(request.HotelID),
		RoomID:         booking.RoomID(request.RoomID),
		Stay:           stay,
		Guest:          guest,
		SpecialRequest: request.SpecialRequest,
	}, nil
}

func (request hotelRequest) toDomain() (booking.HotelInput, error) {
	region, err := booking.ParseRegion(request.Region)
	if err != nil {
		return booking.HotelInput{}, booking.ValidationErrors{{Field: "region", Err: err}}
	}
	starRating, err := booking.NewStarRating(request.StarRating)
	if err != nil {
		return booking.HotelInput{}, booking.ValidationErrors{{Field: "star_rating", Err: err}}
	}
	return booking.HotelInput{
		Name:        request.Name,
		Address:     request.Address,
		Region:      region,
		Description: request.Description,
		StarRating:  starRating,
		FacilityIDs: facilityIDsFrom(request.FacilityIDs),
	}, nil
}

func (request roomTypeRequest) toDomain() (booking.RoomTypeInput, error) {
	basePrice, err := booking.ParsePrice(request.BasePrice)
	if err != nil {
		return booking.RoomTypeInput{}, booking.ValidationErrors{{Field: "base_price", Err: err}}
	}
	return booking.RoomTypeInput{
		HotelID:     booking.HotelID(request.HotelID),
		Name:        request.Name,
		Description: request.Description,
		BasePrice:   basePrice,
	}, nil
}

func (request roomRequest) toDomain() booking.RoomInput {
	isAvailable := true
	if request.IsAvailable != nil {
		isAvailable = *request.IsAvailable
	}
	return booking.RoomInput{
		HotelID:     booking.HotelID(request.HotelID),
		RoomTypeID:  booking.RoomTypeID(request.RoomTypeID),
		Number:      request.Number,
		IsAvailable: isAvailable,
		FacilityIDs: facilityIDsFrom(request.FacilityIDs),
	}
}

func facilityIDsFrom(values []uint64) []booking.FacilityID {
	ids := make([]booking.FacilityID, 0, len(values))
	for _, value := range values {
		ids = append(ids, booking.FacilityID(value))
	}
	return ids
}

func pageFrom(ctx *gin.Context) booking.Page {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	offset, _ := strconv.Atoi(ctx.Query("offset"))
	return booking.Page{Limit: limit, Offset: offset}.Normalize()
}

func optionalBool(raw string) (*bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := booking.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalID(raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
}

// reservationFilterFrom reads the admin list filters; status may repeat or be comma separated.
func reservationFilterFrom(ctx *gin.Context) (booking.ReservationFilter, error) {
	var validationErrors booking.ValidationErrors
	filter := booking.ReservationFilter{Search: strings.TrimSpace(ctx.Query("search")), Page: pageFrom(ctx)}
	for _, rawStatuses := range ctx.QueryArray("status") {
		for _, rawStatus := range strings.Split(rawStatuses, ",") {
			if strings.TrimSpace(rawStatus) == "" {
				continue
			}
			status, err := booking.ParseReservationStatus(rawStatus)
			if err != nil {
				validationErrors = append(validationErrors, booking.FieldError{Field: "status", Err: err})
				continue
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	hotelID, err := optionalID(ctx.Query("hotel_id"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "hotel_id", Err: booking.ErrInvalidHotelID})
	}
	filter.HotelID = booking.HotelID(hotelID)
	dateFields := []struct {
		name   string
		target **time.Time
	}{
		{"check_in_from", &filter.CheckInFrom},
		{"check_in_to", &filter.CheckInTo},
		{"check_out_from", &filter.CheckOutFrom},
		{"check_out_to", &filter.CheckOutTo},
	}
	for _, dateField := range dateFields {
		value, err := optionalDate(ctx.Query(dateField.name))
		if err != nil {
			validationErrors = append(validationErrors, booking.FieldError{Field: dateField.name, Err: err})
			continue
		}
		*dateField.target = value
	}
	if len(validationErrors) > 0 {
		return booking.ReservationFilter{}, validationErrors
	}
	return filter, nil
}
