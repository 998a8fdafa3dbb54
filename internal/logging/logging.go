// Package logging builds the process zap logger and adapts it to booking.OperationLogger.
package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrInvalidLogConfig = errors.New("invalid log config")

// Config selects the level and, optionally, a rotated log file next to stderr.
type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a JSON logger writing to stderr and, when File is set, to a lumberjack-rotated file.
// The returned cleanup flushes buffers and closes the file.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, nil, fmt.Errorf("%w: level %q", ErrInvalidLogConfig, cfg.Level)
		}
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)}
	var rotator *lumberjack.Logger
	if path := strings.TrimSpace(cfg.File); path != "" {
		rotator = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    defaultIfZero(cfg.MaxSizeMB, 100),
			MaxBackups: defaultIfZero(cfg.MaxBackups, 5),
			MaxAge:     defaultIfZero(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	cleanup := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, cleanup, nil
}

func defaultIfZero(value int, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// OperationLogger writes booking operation logs through zap.
type OperationLogger struct {
	logger *zap.Logger
}

func NewOperationLogger(logger *zap.Logger) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationLogger{logger: logger.Named("booking")}
}

func (operationLogger *OperationLogger) LogOperation(_ context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.Actor != "" {
		fields = append(fields, zap.String("actor", entry.Actor))
	}
	if entry.ReservationID != 0 {
		fields = append(fields, zap.Uint64("reservation_id", uint64(entry.ReservationID)))
	}
	if entry.RoomID != 0 {
		fields = append(fields, zap.Uint64("room_id", uint64(entry.RoomID)))
	}
	if entry.HotelID != 0 {
		fields = append(fields, zap.Uint64("hotel_id", uint64(entry.HotelID)))
	}
	if entry.UserID != 0 {
		fields = append(fields, zap.Uint64("user_id", uint64(entry.UserID)))
	}
	if entry.Detail != "" {
		fields = append(fields, zap.String("detail", entry.Detail))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}
	switch entry.Status {
	case booking.OperationStatusError:
		operationLogger.logger.Error("booking operation", fields...)
	case booking.OperationStatusWarning:
		operationLogger.logger.Warn("booking operation", fields...)
	default:
		operationLogger.logger.Info("booking operation", fields...)
	}
}
