package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/logging"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/notify"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/web"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagGRPCListenAddr     = "grpc-listen-addr"
	flagAllowedOrigins     = "allowed-origins"
	flagSecureCookies      = "secure-cookies"
	flagSessionSigningKey  = "session-signing-key"
	flagSessionCookieName  = "session-cookie-name"
	flagSessionTTL         = "session-ttl"
	flagSessionBackend     = "session-backend"
	flagRedisAddr          = "redis-addr"
	flagRedisPassword      = "redis-password"
	flagRedisDB            = "redis-db"
	flagAdminSigningKey    = "admin-jwt-signing-key"
	flagAdminIssuer        = "admin-jwt-issuer"
	flagAdminCookieName    = "admin-jwt-cookie-name"
	flagAdminRole          = "admin-role"
	flagMailBackend        = "mail-backend"
	flagMailFrom           = "mail-from"
	flagSMTPHost           = "smtp-host"
	flagSMTPPort           = "smtp-port"
	flagSMTPUser           = "smtp-user"
	flagSMTPPassword       = "smtp-password"
	flagSendGridAPIKey     = "sendgrid-api-key"
	flagBlobBackend        = "blob-backend"
	flagBlobDir            = "blob-dir"
	flagS3Bucket           = "s3-bucket"
	flagS3Prefix           = "s3-prefix"
	flagS3Region           = "s3-region"
	flagS3BaseURL          = "s3-base-url"
	flagCurrencyPlaces     = "currency-places"
	flagLogFile            = "log-file"
	flagLogLevel           = "log-level"
	envPrefix              = "HOTELBOOK"
	defaultDatabaseURL     = "sqlite:///tmp/hotelbook.db"
	defaultGRPCListenAddr  = ":7070"
	defaultSessionTTL      = 14 * 24 * time.Hour
	defaultBlobDir         = "/tmp/hotelbook-uploads"
	defaultCurrencyPlaces  = 2
	sessionBackendDatabase = "database"
	sessionBackendRedis    = "redis"
	sessionPurgeInterval   = time.Hour
)

type runtimeConfig struct {
	DatabaseURL       string
	GRPCListenAddr    string
	SessionSigningKey string
	SessionTTL        time.Duration
	SessionBackend    string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CurrencyPlaces    int32
	Web               web.Config
	Logging           logging.Config
	Mail              notify.Config
	Blob              blob.Config
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hotelbookd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "hotelbookd",
		Short:         "Hotel booking HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database URL (postgres:// or sqlite://)")
	cmd.Flags().String(flagListenAddr, "", "HTTP listen address")
	cmd.Flags().String(flagGRPCListenAddr, defaultGRPCListenAddr, "gRPC health listen address (empty disables)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().Bool(flagSecureCookies, false, "mark session cookies Secure")
	cmd.Flags().String(flagSessionSigningKey, "", "signing key for application session cookies (required)")
	cmd.Flags().String(flagSessionCookieName, "", "application session cookie name")
	cmd.Flags().Duration(flagSessionTTL, defaultSessionTTL, "application session lifetime")
	cmd.Flags().String(flagSessionBackend, sessionBackendDatabase, "session store: database or redis")
	cmd.Flags().String(flagRedisAddr, "localhost:6379", "redis address for the redis session store")
	cmd.Flags().String(flagRedisPassword, "", "redis password")
	cmd.Flags().Int(flagRedisDB, 0, "redis database index")
	cmd.Flags().String(flagAdminSigningKey, "", "TAuth JWT signing key for the admin console (required)")
	cmd.Flags().String(flagAdminIssuer, "", "expected admin JWT issuer")
	cmd.Flags().String(flagAdminCookieName, "", "admin JWT cookie name")
	cmd.Flags().String(flagAdminRole, "", "role required for the admin console")
	cmd.Flags().String(flagMailBackend, notify.BackendLog, "mail sender: log, smtp or sendgrid")
	cmd.Flags().String(flagMailFrom, "", "sender address for outbound mail")
	cmd.Flags().String(flagSMTPHost, "", "SMTP host")
	cmd.Flags().Int(flagSMTPPort, 587, "SMTP port")
	cmd.Flags().String(flagSMTPUser, "", "SMTP user")
	cmd.Flags().String(flagSMTPPassword, "", "SMTP password")
	cmd.Flags().String(flagSendGridAPIKey, "", "SendGrid API key")
	cmd.Flags().String(flagBlobBackend, blob.BackendFilesystem, "upload storage: filesystem or s3")
	cmd.Flags().String(flagBlobDir, defaultBlobDir, "upload directory for the filesystem backend")
	cmd.Flags().String(flagS3Bucket, "", "S3 bucket for uploads")
	cmd.Flags().String(flagS3Prefix, "", "S3 key prefix for uploads")
	cmd.Flags().String(flagS3Region, "", "S3 region")
	cmd.Flags().String(flagS3BaseURL, "", "S3-compatible endpoint override")
	cmd.Flags().Int(flagCurrencyPlaces, defaultCurrencyPlaces, "decimal places of stored prices (2 or 3)")
	cmd.Flags().String(flagLogFile, "", "rotated log file (empty logs to stderr only)")
	cmd.Flags().String(flagLogLevel, "info", "log level")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.GRPCListenAddr = strings.TrimSpace(v.GetString(flagGRPCListenAddr))
	cfg.SessionSigningKey = v.GetString(flagSessionSigningKey)
	cfg.SessionTTL = v.GetDuration(flagSessionTTL)
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(v.GetString(flagSessionBackend)))
	cfg.RedisAddr = strings.TrimSpace(v.GetString(flagRedisAddr))
	cfg.RedisPassword = v.GetString(flagRedisPassword)
	cfg.RedisDB = v.GetInt(flagRedisDB)
	cfg.CurrencyPlaces = int32(v.GetInt(flagCurrencyPlaces))

	cfg.Web = web.Config{
		ListenAddr:        strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins:    web.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		SessionCookieName: strings.TrimSpace(v.GetString(flagSessionCookieName)),
		SecureCookies:     v.GetBool(flagSecureCookies),
		AdminSigningKey:   v.GetString(flagAdminSigningKey),
		AdminIssuer:       strings.TrimSpace(v.GetString(flagAdminIssuer)),
		AdminCookieName:   strings.TrimSpace(v.GetString(flagAdminCookieName)),
		AdminRole:         strings.TrimSpace(v.GetString(flagAdminRole)),
	}
	cfg.Logging = logging.Config{
		Level: v.GetString(flagLogLevel),
		File:  strings.TrimSpace(v.GetString(flagLogFile)),
	}
	cfg.Mail = notify.Config{
		Backend:        v.GetString(flagMailBackend),
		From:           v.GetString(flagMailFrom),
		SMTPHost:       strings.TrimSpace(v.GetString(flagSMTPHost)),
		SMTPPort:       v.GetInt(flagSMTPPort),
		SMTPUser:       v.GetString(flagSMTPUser),
		SMTPPassword:   v.GetString(flagSMTPPassword),
		SendGridAPIKey: v.GetString(flagSendGridAPIKey),
	}
	cfg.Blob = blob.Config{
		Backend:   v.GetString(flagBlobBackend),
		Dir:       strings.TrimSpace(v.GetString(flagBlobDir)),
		S3Bucket:  strings.TrimSpace(v.GetString(flagS3Bucket)),
		S3Prefix:  strings.TrimSpace(v.GetString(flagS3Prefix)),
		S3Region:  strings.TrimSpace(v.GetString(flagS3Region)),
		S3BaseURL: strings.TrimSpace(v.GetString(flagS3BaseURL)),
	}

	if len(cfg.SessionSigningKey) == 0 {
		return fmt.Errorf("%s is required", flagSessionSigningKey)
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("%s must be positive", flagSessionTTL)
	}
	switch cfg.SessionBackend {
	case sessionBackendDatabase:
	case sessionBackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("%s is required for the redis session backend", flagRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported %s %q", flagSessionBackend, cfg.SessionBackend)
	}
	return cfg.Web.Validate()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, closeLogger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer closeLogger()

	gormDB, cleanup, driver, err := gormstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := gormstore.Migrate(gormDB); err != nil {
		return err
	}
	if driver == gormstore.DriverPostgres {
		installOverlapConstraint(ctx, cfg.DatabaseURL, logger)
	}

	clock := func() time.Time { return time.Now().UTC() }
	notifier, err := notify.New(cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("mail init: %w", err)
	}
	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("blob store init: %w", err)
	}
	sessionStore, closeSessions, err := openSessionStore(ctx, cfg, gormDB, clock, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	sessions, err := session.NewManager(sessionStore, session.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		TTL:        cfg.SessionTTL,
	}, clock)
	if err != nil {
		return fmt.Errorf("session manager init: %w", err)
	}

	options := []booking.ServiceOption{
		booking.WithOperationLogger(logging.NewOperationLogger(logger)),
		booking.WithNotifier(notifier),
		booking.WithCurrencyPlaces(cfg.CurrencyPlaces),
	}
	reservations, err := booking.NewService(gormstore.New(gormDB), clock, options...)
	if err != nil {
		return fmt.Errorf("reservation service init: %w", err)
	}
	catalog, err := booking.NewCatalog(gormstore.NewCatalog(gormDB), clock, options...)
	if err != nil {
		return fmt.Errorf("catalog init: %w", err)
	}
	accounts, err := booking.NewAccounts(gormstore.NewAccounts(gormDB), clock, options...)
	if err != nil {
		return fmt.Errorf("accounts init: %w", err)
	}

	errCh := make(chan error, 2)
	var grpcServer *grpc.Server
	if cfg.GRPCListenAddr != "" {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return fmt.Errorf("database handle: %w", err)
		}
		lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		grpcServer = grpc.NewServer()
		grpcserver.Register(grpcServer, grpcserver.NewHealthServer(sqlDB, logger))
		go func() {
			logger.Info("gRPC health server starting", zap.String("listen_addr", cfg.GRPCListenAddr))
			if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
				errCh <- serveErr
			}
		}()
		defer grpcServer.GracefulStop()
	}

	go func() {
		errCh <- web.Run(ctx, cfg.Web, web.Services{
			Reservations: reservations,
			Catalog:      catalog,
			Accounts:     accounts,
			Sessions:     sessions,
			Blobs:        blobs,
			Logger:       logger,
		})
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
		return <-errCh
	case serveErr := <-errCh:
		return serveErr
	}
}

// installOverlapConstraint adds the Postgres exclusion constraint; existing overlaps leave
// the server running on the transactional check alone.
func installOverlapConstraint(ctx context.Context, databaseURL string, logger *zap.Logger) {
	pool, err := pgstore.Connect(ctx, databaseURL)
	if err != nil {
		logger.Warn("overlap constraint skipped", zap.Error(err))
		return
	}
	defer pool.Close()
	installed, err := pgstore.New(pool).EnsureOverlapConstraint(ctx)
	switch {
	case errors.Is(err, pgstore.ErrOverlapsPresent):
		logger.Warn("overlap constraint not installed; run hotelctl overlaps", zap.Error(err))
	case err != nil:
		logger.Warn("overlap constraint failed", zap.Error(err))
	case installed:
		logger.Info("overlap constraint installed")
	}
}

func openSessionStore(ctx context.Context, cfg *runtimeConfig, db *gorm.DB, clock func() time.Time, logger *zap.Logger) (session.Store, func(), error) {
	if cfg.SessionBackend == sessionBackendRedis {
		client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("redis sessions: %w", err)
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil
	}
	store := gormstore.NewSessions(db, clock)
	purgeCtx, cancel := context.WithCancel(ctx)
	go purgeExpiredSessions(purgeCtx, store, logger)
	return store, cancel, nil
}

// purgeExpiredSessions removes expired database sessions; redis expires keys on its own.
func purgeExpiredSessions(ctx context.Context, store *gormstore.SessionStore, logger *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				logger.Info("expired sessions purged", zap.Int64("count", purged))
			}
		}
	}
}
