package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/logging"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL    = "database-url"
	flagLogLevel       = "log-level"
	flagStatus         = "status"
	envPrefix          = "HOTELBOOK"
	defaultDatabaseURL = "sqlite:///tmp/hotelbook.db"
	operatorSubject    = "hotelctl"
)

type cliConfig struct {
	DatabaseURL string
	LogLevel    string
}

// environment is what every subcommand runs against.
type environment struct {
	db       *gorm.DB
	driver   string
	service  *booking.Service
	operator booking.Principal
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hotelctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &cliConfig{}
	cmd := &cobra.Command{
		Use:           "hotelctl",
		Short:         "Operator tasks for the hotel booking database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}
	cmd.PersistentFlags().String(flagDatabaseURL, defaultDatabaseURL, "database URL (postgres:// or sqlite://)")
	cmd.PersistentFlags().String(flagLogLevel, "warn", "log level")

	cmd.AddCommand(
		newMigrateCommand(cfg),
		newOverlapConstraintCommand(cfg),
		newOverlapsCommand(cfg),
		newTransitionCommand(cfg),
		newRecomputeRatingCommand(cfg),
		newRecalculateTotalCommand(cfg),
		newPurgeSessionsCommand(cfg),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *cliConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, flagName := range []string{flagDatabaseURL, flagLogLevel} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is required", flagDatabaseURL)
	}
	cfg.LogLevel = v.GetString(flagLogLevel)
	return nil
}

// withEnvironment opens and migrates the database, runs fn, and releases everything.
func withEnvironment(ctx context.Context, cfg *cliConfig, fn func(env *environment) error) error {
	logger, closeLogger, err := logging.New(logging.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer closeLogger()

	db, cleanup, driver, err := gormstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()
	if err := gormstore.Migrate(db); err != nil {
		return err
	}

	clock := func() time.Time { return time.Now().UTC() }
	service, err := booking.NewService(gormstore.New(db), clock, booking.WithOperationLogger(logging.NewOperationLogger(logger)))
	if err != nil {
		return err
	}
	operator, err := booking.NewStaffPrincipal(operatorSubject, 0)
	if err != nil {
		return err
	}
	return fn(&environment{db: db, driver: driver, service: service, operator: operator})
}

func newMigrateCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), cfg, func(env *environment) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", env.driver)
				return nil
			})
		},
	}
}

func newOverlapConstraintCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "install-overlap-constraint",
		Short: "Install the Postgres exclusion constraint on active reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(cmd.Context(), cfg, func(store *pgstore.Store) error {
				installed, err := store.EnsureOverlapConstraint(cmd.Context())
				if err != nil {
					return err
				}
				if installed {
					fmt.Fprintln(cmd.OutOrStdout(), "overlap constraint installed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "overlap constraint already present")
				}
				return nil
			})
		},
	}
}

func newOverlapsCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "overlaps",
		Short: "List active reservations that share a room on the same nights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(cmd.Context(), cfg, func(store *pgstore.Store) error {
				overlaps, err := store.ListActiveOverlaps(cmd.Context())
				if err != nil {
					return err
				}
				for _, overlap := range overlaps {
					fmt.Fprintf(cmd.OutOrStdout(), "room %d: reservations %d and %d overlap %s..%s\n",
						overlap.RoomID, overlap.FirstID, overlap.SecondID,
						overlap.From.Format(booking.DateLayout), overlap.Until.Format(booking.DateLayout))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d overlapping pairs\n", len(overlaps))
				return nil
			})
		},
	}
}

func withPostgres(ctx context.Context, cfg *cliConfig, fn func(store *pgstore.Store) error) error {
	driver, _, err := gormstore.ResolveDriver(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if driver != gormstore.DriverPostgres {
		return fmt.Errorf("this command requires a postgres %s", flagDatabaseURL)
	}
	pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pgstore.New(pool))
}

func newTransitionCommand(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition RESERVATION_ID...",
		Short: "Move reservations to a new status, reporting each one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawStatus, err := cmd.Flags().GetString(flagStatus)
			if err != nil {
				return err
			}
			target, err := booking.ParseReservationStatus(rawStatus)
			if err != nil {
				return err
			}
			reservationIDs, err := parseReservationIDs(args)
			if err != nil {
				return err
			}
			return withEnvironment(cmd.Context(), cfg, func(env *environment) error {
				results, err := env.service.BulkTransition(cmd.Context(), env.operator, reservationIDs, target)
				if err != nil {
					return err
				}
				for _, result := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", result.ReservationID, result.PreviousStatus, result.Outcome)
				}
				return nil
			})
		},
	}
	cmd.Flags().String(flagStatus, "", "target status (PAID, CHECKED_IN, CHECKED_OUT, CANCELLED)")
	_ = cmd.MarkFlagRequired(flagStatus)
	return cmd
}

func newRecomputeRatingCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute-rating HOTEL_ID...",
		Short: "Recompute hotel average ratings from their reviews",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hotelIDs := make([]booking.HotelID, 0, len(args))
			for _, arg := range args {
				hotelID, err := booking.ParseHotelID(arg)
				if err != nil {
					return fmt.Errorf("%q: %w", arg, err)
				}
				hotelIDs = append(hotelIDs, hotelID)
			}
			return withEnvironment(cmd.Context(), cfg, func(env *environment) error {
				for _, hotelID := range hotelIDs {
					summary, err := env.service.RecomputeHotelRating(cmd.Context(), hotelID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.2f\t%d reviews\n", hotelID, summary.Average, summary.Count)
				}
				return nil
			})
		},
	}
}

func newRecalculateTotalCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate-total RESERVATION_ID...",
		Short: "Recompute reservation totals from current room prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reservationIDs, err := parseReservationIDs(args)
			if err != nil {
				return err
			}
			return withEnvironment(cmd.Context(), cfg, func(env *environment) error {
				for _, reservationID := range reservationIDs {
					reservation, err := env.service.RecalculateTotal(cmd.Context(), env.operator, reservationID)
					if err != nil {
						return fmt.Errorf("reservation %d: %w", reservationID, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", reservation.ID, reservation.TotalPrice)
				}
				return nil
			})
		},
	}
}

func newPurgeSessionsCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired database sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), cfg, func(env *environment) error {
				clock := func() time.Time { return time.Now().UTC() }
				purged, err := gormstore.NewSessions(env.db, clock).PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expired sessions purged\n", purged)
				return nil
			})
		},
	}
}

func parseReservationIDs(args []string) ([]booking.ReservationID, error) {
	reservationIDs := make([]booking.ReservationID, 0, len(args))
	for _, arg := range args {
		for _, raw := range strings.Split(arg, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			reservationID, err := booking.ParseReservationID(raw)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", raw, err)
			}
			reservationIDs = append(reservationIDs, reservationID)
		}
	}
	return reservationIDs, nil
}
