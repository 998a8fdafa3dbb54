package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form fields next to the largest allowed file.
const multipartOverhead = 1 << 20

func (handler *httpHandler) handleListReservations(ctx *gin.Context) {
	reservations, err := handler.reservations.ListReservations(ctx.Request.Context(), currentPrincipal(ctx), pageFrom(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservations": mapSlice(reservations, newReservationPayload)})
}

func (handler *httpHandler) handleCreateReservation(ctx *gin.Context) {
	var request reservationRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	domainRequest, err := request.toDomain()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.reservations.CreateReservation(ctx.Request.Context(), currentPrincipal(ctx), domainRequest)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"reservation": newReservationPayload(reservation)})
}

// handleGetReservation serves both the owner and the admin console; the service decides visibility.
func (handler *httpHandler) handleGetReservation(ctx *gin.Context) {
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
	ctx.JSON(http.StatusOK, gin.H{"reservation": newReservationPayload(reservation)})
}

func (handler *httpHandler) handleCancelReservation(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.reservations.CancelReservation(ctx.Request.Context(), currentPrincipal(ctx), reservationID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": newReservationPayload(reservation)})
}

func (handler *httpHandler) handleReschedule(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request stayRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	stay, err := booking.ParseStayRange(request.CheckIn, request.CheckOut)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.reservations.RescheduleReservation(ctx.Request.Context(), currentPrincipal(ctx), reservationID, stay)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservation": newReservationPayload(reservation)})
}

// handleSubmitPayment takes a multipart form with `method` and an optional `proof` file. Payability
// is checked first so proofs are never stored for reservations that cannot be paid.
func (handler *httpHandler) handleSubmitPayment(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	limitUploadBody(ctx)
	principal := currentPrincipal(ctx)
	if err := handler.reservations.CheckPayable(ctx.Request.Context(), principal, reservationID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	method, err := booking.ParsePaymentMethod(ctx.PostForm("method"))
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "method", Err: err}})
		return
	}
	proofRef := ""
	if _, err := ctx.FormFile("proof"); !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		proofRef, err = handler.storeUpload(ctx, "proof", blob.FolderPaymentProofs)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
	}
	payment, err := handler.reservations.SubmitPayment(ctx.Request.Context(), principal, reservationID, booking.PaymentSubmission{
		Method:   method,
		ProofRef: proofRef,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": newPaymentPayload(payment)})
}

func (handler *httpHandler) handleSubmitReview(ctx *gin.Context) {
	reservationID, err := booking.ParseReservationID(ctx.Param("reservationID"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request reviewRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	rating, err := booking.NewRating(request.Rating)
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "rating", Err: err}})
		return
	}
	review, err := handler.reservations.SubmitReview(ctx.Request.Context(), currentPrincipal(ctx), reservationID, rating, request.Comment)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"review": newReviewPayload(review)})
}

// limitUploadBody must run before any form field is read.
func limitUploadBody(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, blob.MaxUploadBytes+multipartOverhead)
}

// storeUpload saves the multipart file under field into folder and returns its blob ref.
func (handler *httpHandler) storeUpload(ctx *gin.Context, field string, folder string) (string, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", blob.ErrTooLarge
		}
		return "", booking.ValidationErrors{{Field: field, Err: booking.ErrMissingFile}}
	}
	if header.Size > blob.MaxUploadBytes {
		return "", blob.ErrTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	ref, err := blob.Save(ctx.Request.Context(), handler.blobs, folder, file)
	switch {
	case err == nil:
		return ref, nil
	case errors.Is(err, blob.ErrTooLarge), errors.Is(err, blob.ErrUnsupportedType), errors.Is(err, blob.ErrEmptyUpload):
		return "", err
	default:
		return "", errors.Join(booking.ErrBlobStoreFailed, err)
	}
}
