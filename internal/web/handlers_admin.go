package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
)

var adminSections = []string{
	"hotels", "room-types", "facilities", "rooms", "reservations", "payments", "reviews", "profiles",
}

func (handler *httpHandler) handleAdminDashboard(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"subject":  currentPrincipal(ctx).Subject(),
		"sections": adminSections,
	})
}

func (handler *httpHandler) handleAdminListHotels(ctx *gin.Context) {
	hotels, err := handler.catalog.SearchHotels(ctx.Request.Context(), booking.HotelQuery{
		Name: strings.TrimSpace(ctx.Query("name")),
		Page: pageFrom(ctx),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"hotels": mapSlice(hotels, newHotelPayload)})
}

func (handler *httpHandler) handleCreateHotel(ctx *gin.Context) {
	var request hotelRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	input, err := request.toDomain()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	hotel, err := handler.catalog.CreateHotel(ctx.Request.Context(), currentPrincipal(ctx), input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"hotel": newHotelPayload(hotel)})
}

func (handler *httpHandler) handleUpdateHotel(ctx *gin.Context) {
	hotelID, err := booking.ParseHotelID(ctx.Param("hotelID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request hotelRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	input, err := request.toDomain()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	hotel, err := handler.catalog.UpdateHotel(ctx.Request.Context(), currentPrincipal(ctx), hotelID, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"hotel": newHotelPayload(hotel)})
}

// handleAddGalleryImage takes a multipart form with an `image` file and an optional `caption`.
func (handler *httpHandler) handleAddGalleryImage(ctx *gin.Context) {
	hotelID, err := booking.ParseHotelID(ctx.Param("hotelID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	limitUploadBody(ctx)
	if _, err := handler.catalog.GetHotel(ctx.Request.Context(), hotelID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ref, err := handler.storeUpload(ctx, "image", blob.FolderGallery)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	image, err := handler.catalog.AddGalleryImage(ctx.Request.Context(), currentPrincipal(ctx), hotelID, ref, ctx.PostForm("caption"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"image": newGalleryImagePayload(image)})
}

func (handler *httpHandler) handleRecomputeRating(ctx *gin.Context) {
	hotelID, err := booking.ParseHotelID(ctx.Param("hotelID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if _, err := handler.catalog.GetHotel(ctx.Request.Context(), hotelID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	summary, err := handler.reservations.RecomputeHotelRating(ctx.Request.Context(), hotelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"average_rating": summary.Average, "review_count": summary.Count})
}

func (handler *httpHandler) handleAdminListRoomTypes(ctx *gin.Context) {
	hotelID, err := optionalID(ctx.Query("hotel_id"))
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "hotel_id", Err: booking.ErrInvalidHotelID}})
		return
	}
	roomTypes, err := handler.catalog.ListRoomTypes(ctx.Request.Context(), booking.RoomTypeQuery{
		HotelID: booking.HotelID(hotelID),
		Name:    strings.TrimSpace(ctx.Query("name")),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room_types": mapSlice(roomTypes, newRoomTypePayload)})
}

func (handler *httpHandler) handleCreateRoomType(ctx *gin.Context) {
	var request roomTypeRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	input, err := request.toDomain()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	roomType, err := handler.catalog.CreateRoomType(ctx.Request.Context(), currentPrincipal(ctx), input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"room_type": newRoomTypePayload(roomType)})
}

func (handler *httpHandler) handleUpdateRoomType(ctx *gin.Context) {
	roomTypeID, err := booking.ParseRoomTypeID(ctx.Param("roomTypeID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request roomTypeRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	input, err := request.toDomain()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	roomType, err := handler.catalog.UpdateRoomType(ctx.Request.Context(), currentPrincipal(ctx), roomTypeID, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room_type": newRoomTypePayload(roomType)})
}

func (handler *httpHandler) handleCreateFacility(ctx *gin.Context) {
	var request facilityRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	facility, err := handler.catalog.CreateFacility(ctx.Request.Context(), currentPrincipal(ctx), booking.FacilityInput{
		Name: request.Name,
		Icon: request.Icon,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"facility": newFacilityPayload(facility)})
}

func (handler *httpHandler) handleAdminListRooms(ctx *gin.Context) {
	var validationErrors booking.ValidationErrors
	hotelID, err := optionalID(ctx.Query("hotel_id"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "hotel_id", Err: booking.ErrInvalidHotelID})
	}
	roomTypeID, err := optionalID(ctx.Query("room_type_id"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "room_type_id", Err: booking.ErrInvalidRoomTypeID})
	}
	available, err := optionalBool(ctx.Query("is_available"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "is_available", Err: err})
	}
	if len(validationErrors) > 0 {
		handler.respondError(ctx, validationErrors)
		return
	}
	rooms, err := handler.catalog.ListRooms(ctx.Request.Context(), booking.RoomQuery{
		HotelID:    booking.HotelID(hotelID),
		RoomTypeID: booking.RoomTypeID(roomTypeID),
		Available:  available,
		Number:     strings.TrimSpace(ctx.Query("number")),
		Page:       pageFrom(ctx),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": mapSlice(rooms, newRoomPayload)})
}

func (handler *httpHandler) handleCreateRoom(ctx *gin.Context) {
	var request roomRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	room, err := handler.catalog.CreateRoom(ctx.Request.Context(), currentPrincipal(ctx), request.toDomain())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"room": newRoomPayload(room)})
}

func (handler *httpHandler) handleUpdateRoom(ctx *gin.Context) {
	roomID, err := booking.ParseRoomID(ctx.Param("roomID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request roomRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	room, err := handler.catalog.UpdateRoom(ctx.Request.Context(), currentPrincipal(ctx), roomID, request.toDomain())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": newRoomPayload(room)})
}

func (handler *httpHandler) handleAdminListReservations(ctx *gin.Context) {
	filter, err := reservationFilterFrom(ctx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservations, err := handler.reservations.AdminListReservations(ctx.Request.Context(), currentPrincipal(ctx), filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservations": mapSlice(reservations, newReservationPayload)})
}

func (handler *httpHandler) handleTransition(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request transitionRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	target, err := booking.ParseReservationStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "status", Err: err}})
		return
	}
	reservation, err := handler.reservations.TransitionStatus(ctx.Request.Context(), currentPrincipal(ctx), reservationID, target)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": newReservationPayload(reservation)})
}

// handleBulkTransition reports one outcome per requested id instead of failing the batch.
func (handler *httpHandler) handleBulkTransition(ctx *gin.Context) {
	var request bulkTransitionRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	target, err := booking.ParseReservationStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "status", Err: err}})
		return
	}
	reservationIDs := make([]booking.ReservationID, 0, len(request.ReservationIDs))
	for _, rawID := range request.ReservationIDs {
		reservationIDs = append(reservationIDs, booking.ReservationID(rawID))
	}
	results, err := handler.reservations.BulkTransition(ctx.Request.Context(), currentPrincipal(ctx), reservationIDs, target)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]transitionResultPayload, 0, len(results))
	applied := 0
	for _, result := range results {
		if result.Outcome == booking.OutcomeApplied {
			applied++
		}
		payloads = append(payloads, transitionResultPayload{
			ReservationID:  uint64(result.ReservationID),
			PreviousStatus: result.PreviousStatus.String(),
			Outcome:        string(result.Outcome),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"results": payloads, "applied": applied})
}

func (handler *httpHandler) handleRecalculateTotal(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.reservations.RecalculateTotal(ctx.Request.Context(), currentPrincipal(ctx), reservationID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": newReservationPayload(reservation)})
}

func (handler *httpHandler) handleAdminListPayments(ctx *gin.Context) {
	filter := booking.PaymentFilter{Search: strings.TrimSpace(ctx.Query("search")), Page: pageFrom(ctx)}
	var validationErrors booking.ValidationErrors
	isPaid, err := optionalBool(ctx.Query("is_paid"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "is_paid", Err: err})
	}
	filter.IsPaid = isPaid
	if rawMethod := ctx.Query("method"); rawMethod != "" {
		method, err := booking.ParsePaymentMethod(rawMethod)
		if err != nil {
			validationErrors = append(validationErrors, booking.FieldError{Field: "method", Err: err})
		}
		filter.Method = method
	}
	if len(validationErrors) > 0 {
		handler.respondError(ctx, validationErrors)
		return
	}
	payments, err := handler.reservations.ListPayments(ctx.Request.Context(), currentPrincipal(ctx), filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payments": mapSlice(payments, newPaymentPayload)})
}

// handlePaymentProof streams the uploaded proof of payment to staff.
func (handler *httpHandler) handlePaymentProof(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.reservations.GetReservation(ctx.Request.Context(), currentPrincipal(ctx), reservationID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if reservation.Payment == nil || reservation.Payment.ProofRef == "" {
		handler.respondError(ctx, booking.ErrUnknownPayment)
		return
	}
	handler.streamBlob(ctx, reservation.Payment.ProofRef)
}

func (handler *httpHandler) handleAdminListReviews(ctx *gin.Context) {
	filter := booking.ReviewFilter{Search: strings.TrimSpace(ctx.Query("search")), Page: pageFrom(ctx)}
	var validationErrors booking.ValidationErrors
	if rawRating := ctx.Query("rating"); rawRating != "" {
		value, err := strconv.Atoi(rawRating)
		rating, ratingErr := booking.NewRating(value)
		if err != nil || ratingErr != nil {
			validationErrors = append(validationErrors, booking.FieldError{Field: "rating", Err: booking.ErrInvalidRating})
		}
		filter.Rating = rating
	}
	hotelID, err := optionalID(ctx.Query("hotel_id"))
	if err != nil {
		validationErrors = append(validationErrors, booking.FieldError{Field: "hotel_id", Err: booking.ErrInvalidHotelID})
	}
	filter.HotelID = booking.HotelID(hotelID)
	if len(validationErrors) > 0 {
		handler.respondError(ctx, validationErrors)
		return
	}
	reviews, err := handler.reservations.ListReviews(ctx.Request.Context(), currentPrincipal(ctx), filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reviews": mapSlice(reviews, newReviewPayload)})
}

func (handler *httpHandler) handleDeleteReview(ctx *gin.Context) {
	reviewID, err := booking.ParseReviewID(ctx.Param("reviewID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.reservations.DeleteReview(ctx.Request.Context(), currentPrincipal(ctx), reviewID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleAdminListProfiles(ctx *gin.Context) {
	query := booking.ProfileQuery{Search: strings.TrimSpace(ctx.Query("search")), Page: pageFrom(ctx)}
	if rawGender := ctx.Query("gender"); rawGender != "" {
		gender, err := booking.ParseGender(rawGender)
		if err != nil {
			handler.respondError(ctx, booking.ValidationErrors{{Field: "gender", Err: err}})
			return
		}
		query.Gender = gender
	}
	accounts, err := handler.accounts.ListProfiles(ctx.Request.Context(), currentPrincipal(ctx), query)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profiles": mapSlice(accounts, newAccountPayload)})
}
