package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOperationLoggerLevels(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name          string
		status        string
		expectedLevel zapcore.Level
	}{
		{name: "ok", status: booking.OperationStatusOK, expectedLevel: zapcore.InfoLevel},
		{name: "warning", status: booking.OperationStatusWarning, expectedLevel: zapcore.WarnLevel},
		{name: "error", status: booking.OperationStatusError, expectedLevel: zapcore.ErrorLevel},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			core, recorded := observer.New(zapcore.DebugLevel)
			operationLogger := NewOperationLogger(zap.New(core))
			operationLogger.LogOperation(context.Background(), booking.OperationLog{
				Operation:     "create_reservation",
				Actor:         "user:7",
				ReservationID: 12,
				Status:        testCase.status,
				Error:         errors.New("boom"),
			})
			entries := recorded.All()
			if len(entries) != 1 {
				test.Fatalf("expected one entry, got %d", len(entries))
			}
			if entries[0].Level != testCase.expectedLevel {
				test.Fatalf("expected %s, got %s", testCase.expectedLevel, entries[0].Level)
			}
			fields := entries[0].ContextMap()
			if fields["operation"] != "create_reservation" || fields["reservation_id"] != uint64(12) || fields["actor"] != "user:7" {
				test.Fatalf("unexpected fields %v", fields)
			}
			if entries[0].LoggerName != "booking" {
				test.Fatalf("unexpected logger name %q", entries[0].LoggerName)
			}
		})
	}
}

func TestOperationLoggerOmitsZeroIDs(test *testing.T) {
	test.Parallel()
	core, recorded := observer.New(zapcore.DebugLevel)
	NewOperationLogger(zap.New(core)).LogOperation(context.Background(), booking.OperationLog{Operation: "recompute_rating", Status: booking.OperationStatusOK, HotelID: 3})
	fields := recorded.All()[0].ContextMap()
	if _, ok := fields["reservation_id"]; ok {
		test.Fatalf("zero reservation id should be omitted: %v", fields)
	}
	if fields["hotel_id"] != uint64(3) {
		test.Fatalf("expected hotel_id 3, got %v", fields["hotel_id"])
	}
}

func TestNewWritesRotatedFile(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), "logs", "hotelbook.log")
	logger, cleanup, err := New(Config{Level: "debug", File: path})
	if err != nil {
		test.Fatalf("new logger: %v", err)
	}
	logger.Debug("written to file", zap.String("component", "test"))
	cleanup()
	contents, err := os.ReadFile(path)
	if err != nil {
		test.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(contents), "written to file") {
		test.Fatalf("log file missing entry: %s", contents)
	}
}

func TestNewRejectsUnknownLevel(test *testing.T) {
	test.Parallel()
	if _, _, err := New(Config{Level: "chatty"}); !errors.Is(err, ErrInvalidLogConfig) {
		test.Fatalf("expected ErrInvalidLogConfig, got %v", err)
	}
}
