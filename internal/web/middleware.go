package web

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const (
	claimsContextKey    = "auth_claims"
	principalContextKey = "principal"
	tokenContextKey     = "session_token"
)

func (handler *httpHandler) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		}
		if ctx.Writer.Status() >= http.StatusInternalServerError {
			handler.logger.Warn("request failed", fields...)
			return
		}
		handler.logger.Debug("request", fields...)
	}
}

func (handler *httpHandler) requestTimeout() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}

// loadPrincipal resolves the visitor's session cookie into a request-scoped principal.
// A stale or forged cookie is cleared and the visitor continues anonymously.
func (handler *httpHandler) loadPrincipal() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(handler.cfg.SessionCookieName)
		if err != nil || token == "" {
			ctx.Next()
			return
		}
		resolved, err := handler.sessions.Resolve(ctx.Request.Context(), token)
		switch {
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrInvalidToken):
			handler.clearSessionCookie(ctx)
			ctx.Next()
			return
		case err != nil:
			handler.logger.Error("session lookup failed", zap.Error(err))
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse("session_unavailable", "sessions are temporarily unavailable"))
			return
		}
		rawUserID, _ := resolved.Get(session.KeyUserID)
		parsedUserID, parseErr := strconv.ParseUint(rawUserID, 10, 64)
		principal, principalErr := booking.NewCustomerPrincipal(booking.UserID(parsedUserID))
		if parseErr != nil || principalErr != nil {
			handler.clearSessionCookie(ctx)
			ctx.Next()
			return
		}
		ctx.Set(principalContextKey, principal)
		ctx.Set(tokenContextKey, token)
		ctx.Next()
	}
}

func requireCustomer() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := principalFrom(ctx); !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "login required"))
			return
		}
		ctx.Next()
	}
}

// admitStaffSession lets staff accounts logged in through the application session skip
// the console token check; everyone else must present a console token.
func (handler *httpHandler) admitStaffSession(consoleAuth gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if principal, ok := principalFrom(ctx); ok {
			account, err := handler.accounts.Profile(ctx.Request.Context(), principal)
			if err == nil && account.IsStaff {
				staff, staffErr := booking.NewStaffPrincipal(account.Username, account.ID)
				if staffErr == nil {
					ctx.Set(principalContextKey, staff)
					ctx.Next()
					return
				}
			}
		}
		consoleAuth(ctx)
	}
}

// requireStaff turns console claims carrying the admin role into a staff principal.
func (handler *httpHandler) requireStaff() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if principal, ok := principalFrom(ctx); ok && principal.IsStaff() {
			ctx.Next()
			return
		}
		claims := getClaims(ctx)
		if claims == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
			return
		}
		if !slices.Contains(claims.GetUserRoles(), handler.cfg.AdminRole) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "staff access required"))
			return
		}
		staff, err := booking.NewStaffPrincipal(claims.GetUserID(), 0)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing subject"))
			return
		}
		ctx.Set(principalContextKey, staff)
		ctx.Next()
	}
}

func principalFrom(ctx *gin.Context) (booking.Principal, bool) {
	value, ok := ctx.Get(principalContextKey)
	if !ok {
		return booking.Principal{}, false
	}
	principal, ok := value.(booking.Principal)
	return principal, ok
}

// currentPrincipal returns the caller or the zero principal, which every service rejects as unauthenticated.
func currentPrincipal(ctx *gin.Context) booking.Principal {
	principal, _ := principalFrom(ctx)
	return principal
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}

func (handler *httpHandler) setSessionCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(handler.cfg.SessionCookieName, token, int(handler.sessions.TTL().Seconds()), "/", "", handler.cfg.SecureCookies, true)
}

func (handler *httpHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(handler.cfg.SessionCookieName, "", -1, "/", "", handler.cfg.SecureCookies, true)
}
