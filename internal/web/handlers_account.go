package web

import (
	"net/http"
	"strconv"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	gender, err := booking.ParseGender(request.Gender)
	if err != nil {
		handler.respondError(ctx, booking.ValidationErrors{{Field: "gender", Err: err}})
		return
	}
	account, err := handler.accounts.Register(ctx.Request.Context(), booking.RegistrationInput{
		Username:             request.Username,
		Email:                request.Email,
		FirstName:            request.FirstName,
		LastName:             request.LastName,
		Password:             request.Password,
		PasswordConfirmation: request.PasswordConfirmation,
		Phone:                request.Phone,
		Gender:               gender,
		Address:              request.Address,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"account": newAccountPayload(account)})
}

// handleLogin starts a server-side session that carries only the user id.
func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := bindJSON(ctx, &request); err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.accounts.Authenticate(ctx.Request.Context(), request.Username, request.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if previous, ok := ctx.Get(tokenContextKey); ok {
		if destroyErr := handler.sessions.Destroy(ctx.Request.Context(), previous.(string)); destroyErr != nil {
			handler.logger.Warn("previous session not destroyed", zap.Error(destroyErr))
		}
	}
	_, token, err := handler.sessions.Start(ctx.Request.Context(), session.Values{
		session.KeyUserID: strconv.FormatUint(uint64(result.Account.ID), 10),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.setSessionCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{
		"account":  newAccountPayload(result.Account),
		"redirect": result.Redirect,
	})
}

func (handler *httpHandler) handleLogout(ctx *gin.Context) {
	token, err := ctx.Cookie(handler.cfg.SessionCookieName)
	if err == nil && token != "" {
		if destroyErr := handler.sessions.Destroy(ctx.Request.Context(), token); destroyErr != nil {
			handler.respondError(ctx, destroyErr)
			return
		}
	}
	handler.clearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (handler *httpHandler) handleProfile(ctx *gin.Context) {
	account, err := handler.accounts.Profile(ctx.Request.Context(), currentPrincipal(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"account": newAccountPayload(account)})
}
