package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (handler *httpHandler) handleHome(ctx *gin.Context) {
	hotels, err := handler.catalog.SearchHotels(ctx.Request.Context(), booking.HotelQuery{Page: booking.Page{Limit: homeHotelLimit}})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	regions := make([]string, 0, len(booking.Regions()))
	for _, region := range booking.Regions() {
		regions = append(regions, region.String())
	}
	ctx.JSON(http.StatusOK, gin.H{
		"hotels":  mapSlice(hotels, newHotelPayload),
		"regions": regions,
	})
}

func (handler *httpHandler) handleAbout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"name":        "Hotelbook",
		"description": "Hotel reservations across Indonesia: search hotels, book rooms, pay by bank transfer or e-wallet, and review your stay.",
		"payment_methods": []string{
			booking.PaymentMethodBankTransfer.String(),
			booking.PaymentMethodEWallet.String(),
		},
		"tax_rate": booking.TaxRate().String(),
	})
}

func (handler *httpHandler) handleSearchHotels(ctx *gin.Context) {
	query := booking.HotelQuery{Name: strings.TrimSpace(ctx.Query("name")), Page: pageFrom(ctx)}
	if rawRegion := ctx.Query("region"); rawRegion != "" {
		region, err := booking.ParseRegion(rawRegion)
		if err != nil {
			handler.respondError(ctx, booking.ValidationErrors{{Field: "region", Err: err}})
			return
		}
		query.Region = region
	}
	if rawStars := ctx.Query("min_stars"); rawStars != "" {
		stars, err := strconv.Atoi(rawStars)
		if err == nil {
			query.MinStarRating, err = booking.NewStarRating(stars)
		}
		if err != nil {
			handler.respondError(ctx, booking.ValidationErrors{{Field: "min_stars", Err: booking.ErrInvalidStarRating}})
			return
		}
	}
	hotels, err := handler.catalog.SearchHotels(ctx.Request.Context(), query)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"hotels": mapSlice(hotels, newHotelPayload)})
}

func (handler *httpHandler) handleHotelDetail(ctx *gin.Context) {
	hotelID, err := booking.ParseHotelID(ctx.Param("hotelID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx := ctx.Request.Context()
	hotel, err := handler.catalog.GetHotel(requestCtx, hotelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	roomTypes, err := handler.catalog.ListRoomTypes(requestCtx, booking.RoomTypeQuery{HotelID: hotelID})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	rooms, err := handler.catalog.BookableRooms(requestCtx, hotelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	images, err := handler.catalog.ListGalleryImages(requestCtx, hotelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"hotel":      newHotelPayload(hotel),
		"room_types": mapSlice(roomTypes, newRoomTypePayload),
		"rooms":      mapSlice(rooms, newRoomPayload),
		"gallery":    mapSlice(images, newGalleryImagePayload),
	})
}

func (handler *httpHandler) handleBookableRooms(ctx *gin.Context) {
	hotelID, err := booking.ParseHotelID(ctx.Param("hotelID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	rooms, err := handler.catalog.BookableRooms(ctx.Request.Context(), hotelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": mapSlice(rooms, newRoomPayload)})
}

func (handler *httpHandler) handleQuote(ctx *gin.Context) {
	roomID, err := booking.ParseRoomID(ctx.Param("roomID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	stay, err := booking.ParseStayRange(ctx.Query("check_in"), ctx.Query("check_out"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	quote, err := handler.reservations.QuotePrice(ctx.Request.Context(), roomID, stay)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	available, err := handler.reservations.CheckAvailability(ctx.Request.Context(), roomID, stay)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"quote": quotePayload{
		Nights:    quote.Nights,
		Subtotal:  quote.Subtotal.String(),
		Tax:       quote.Tax.String(),
		Total:     quote.Total.String(),
		Available: available,
	}})
}

func (handler *httpHandler) handleListFacilities(ctx *gin.Context) {
	facilities, err := handler.catalog.ListFacilities(ctx.Request.Context(), strings.TrimSpace(ctx.Query("name")))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"facilities": mapSlice(facilities, newFacilityPayload)})
}

// handleGalleryMedia streams public gallery images. Payment proofs are served only to staff.
func (handler *httpHandler) handleGalleryMedia(ctx *gin.Context) {
	ref := strings.TrimPrefix(ctx.Param("ref"), "/")
	if !strings.HasPrefix(ref, blob.FolderGallery+"/") {
		handler.respondError(ctx, blob.ErrNotFound)
		return
	}
	handler.streamBlob(ctx, ref)
}

func (handler *httpHandler) streamBlob(ctx *gin.Context, ref string) {
	reader, err := handler.blobs.Get(ctx.Request.Context(), ref)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) && !errors.Is(err, blob.ErrInvalidRef) {
			err = errors.Join(booking.ErrBlobStoreFailed, err)
		}
		handler.respondError(ctx, err)
		return
	}
	defer reader.Close()
	ctx.Header("Cache-Control", "private, max-age=300")
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("Content-Type", blob.ContentTypeOf(ref))
	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, reader); err != nil {
		handler.logger.Warn("blob stream interrupted", zap.String("ref", ref), zap.Error(err))
	}
}
