package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

var errMissingDependency = errors.New("missing dependency")

// Services are the collaborators every handler reaches through.
type Services struct {
	Reservations *booking.Service
	Catalog      *booking.Catalog
	Accounts     *booking.Accounts
	Sessions     *session.Manager
	Blobs        blob.Store
	Logger       *zap.Logger
}

func (services Services) validate() error {
	switch {
	case services.Reservations == nil:
		return fmt.Errorf("%w: reservation service", errMissingDependency)
	case services.Catalog == nil:
		return fmt.Errorf("%w: catalog", errMissingDependency)
	case services.Accounts == nil:
		return fmt.Errorf("%w: accounts", errMissingDependency)
	case services.Sessions == nil:
		return fmt.Errorf("%w: session manager", errMissingDependency)
	case services.Blobs == nil:
		return fmt.Errorf("%w: blob store", errMissingDependency)
	}
	return nil
}

// Run serves the HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg Config, services Services) error {
	router, err := NewRouter(cfg, services)
	if err != nil {
		return err
	}
	logger := services.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter validates cfg and builds the gin engine with every route mounted.
func NewRouter(cfg Config, services Services) (*gin.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := services.validate(); err != nil {
		return nil, err
	}
	if services.Logger == nil {
		services.Logger = zap.NewNop()
	}
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.AdminSigningKey),
		Issuer:     cfg.AdminIssuer,
		CookieName: cfg.AdminCookieName,
	})
	if err != nil {
		return nil, fmt.Errorf("session validator: %w", err)
	}
	handler := &httpHandler{
		cfg:          cfg,
		logger:       services.Logger,
		reservations: services.Reservations,
		catalog:      services.Catalog,
		accounts:     services.Accounts,
		sessions:     services.Sessions,
		blobs:        services.Blobs,
	}
	return setupRouter(cfg, handler, validator), nil
}

func setupRouter(cfg Config, handler *httpHandler, validator *sessionvalidator.Validator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.accessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(handler.requestTimeout())

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	site := router.Group("/")
	site.Use(handler.loadPrincipal())

	site.GET("/", handler.handleHome)
	site.GET("/about", handler.handleAbout)
	site.GET("/hotels", handler.handleSearchHotels)
	site.GET("/hotels/:hotelID", handler.handleHotelDetail)
	site.GET("/hotels/:hotelID/rooms", handler.handleBookableRooms)
	site.GET("/rooms/:roomID/quote", handler.handleQuote)
	site.GET("/facilities", handler.handleListFacilities)
	site.GET("/media/*ref", handler.handleGalleryMedia)

	site.POST("/auth/register", handler.handleRegister)
	site.POST("/auth/login", handler.handleLogin)
	site.POST("/auth/logout", handler.handleLogout)

	customer := site.Group("/")
	customer.Use(requireCustomer())
	customer.GET("/me", handler.handleProfile)
	customer.GET("/reservations", handler.handleListReservations)
	customer.POST("/reservations", handler.handleCreateReservation)
	customer.GET("/reservations/:reservationID", handler.handleGetReservation)
	customer.POST("/reservations/:reservationID/cancel", handler.handleCancelReservation)
	customer.PUT("/reservations/:reservationID/stay", handler.handleReschedule)
	customer.POST("/reservations/:reservationID/payment", handler.handleSubmitPayment)
	customer.POST("/reservations/:reservationID/review", handler.handleSubmitReview)

	admin := site.Group("/admin")
	admin.Use(handler.admitStaffSession(validator.GinMiddleware(claimsContextKey)), handler.requireStaff())
	admin.GET("", handler.handleAdminDashboard)
	admin.GET("/hotels", handler.handleAdminListHotels)
	admin.POST("/hotels", handler.handleCreateHotel)
	admin.PUT("/hotels/:hotelID", handler.handleUpdateHotel)
	admin.POST("/hotels/:hotelID/gallery", handler.handleAddGalleryImage)
	admin.POST("/hotels/:hotelID/rating", handler.handleRecomputeRating)
	admin.GET("/room-types", handler.handleAdminListRoomTypes)
	admin.POST("/room-types", handler.handleCreateRoomType)
	admin.PUT("/room-types/:roomTypeID", handler.handleUpdateRoomType)
	admin.GET("/facilities", handler.handleListFacilities)
	admin.POST("/facilities", handler.handleCreateFacility)
	admin.GET("/rooms", handler.handleAdminListRooms)
	admin.POST("/rooms", handler.handleCreateRoom)
	admin.PUT("/rooms/:roomID", handler.handleUpdateRoom)
	admin.GET("/reservations", handler.handleAdminListReservations)
	admin.POST("/reservations/bulk-status", handler.handleBulkTransition)
	admin.GET("/reservations/:reservationID", handler.handleGetReservation)
	admin.POST("/reservations/:reservationID/status", handler.handleTransition)
	admin.POST("/reservations/:reservationID/recalculate", handler.handleRecalculateTotal)
	admin.GET("/payments", handler.handleAdminListPayments)
	admin.GET("/payments/:reservationID/proof", handler.handlePaymentProof)
	admin.GET("/reviews", handler.handleAdminListReviews)
	admin.DELETE("/reviews/:reviewID", handler.handleDeleteReview)
	admin.GET("/profiles", handler.handleAdminListProfiles)

	return router
}

type httpHandler struct {
	cfg          Config
	logger       *zap.Logger
	reservations *booking.Service
	catalog      *booking.Catalog
	accounts     *booking.Accounts
	sessions     *session.Manager
	blobs        blob.Store
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
