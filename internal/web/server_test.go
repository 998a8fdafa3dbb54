package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/internal/blob"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/session"
	"github.com/MarkoPoloResearchLab/hotelbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const (
	testAdminSigningKey   = "console-secret"
	testSessionSigningKey = "session-secret"
	testPassword          = "correct-horse"
)

var (
	fixedNow  = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

func fixedClock() time.Time {
	return fixedNow
}

type webHarness struct {
	cfg     Config
	router  *gin.Engine
	blobDir string
	hotel   hotelPayload
	room    roomPayload
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type reservationEnvelope struct {
	Reservation reservationPayload `json:"reservation"`
}

type bulkEnvelope struct {
	Results []transitionResultPayload `json:"results"`
	Applied int                       `json:"applied"`
}

func newWebHarness(test *testing.T) *webHarness {
	test.Helper()
	ctx := context.Background()
	db, cleanup, _, err := gormstore.Open(ctx, "sqlite://"+filepath.Join(test.TempDir(), "hotelbook.db"))
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	test.Cleanup(func() { _ = cleanup() })
	if err := gormstore.Migrate(db); err != nil {
		test.Fatalf("migrate: %v", err)
	}

	reservations, err := booking.NewService(gormstore.New(db), fixedClock)
	if err != nil {
		test.Fatalf("service: %v", err)
	}
	catalog, err := booking.NewCatalog(gormstore.NewCatalog(db), fixedClock)
	if err != nil {
		test.Fatalf("catalog: %v", err)
	}
	accounts, err := booking.NewAccounts(gormstore.NewAccounts(db), fixedClock)
	if err != nil {
		test.Fatalf("accounts: %v", err)
	}
	sessions, err := session.NewManager(gormstore.NewSessions(db, fixedClock), session.Config{
		SigningKey: []byte(testSessionSigningKey),
		TTL:        time.Hour,
	}, fixedClock)
	if err != nil {
		test.Fatalf("sessions: %v", err)
	}
	blobDir := test.TempDir()
	blobs, err := blob.NewFilesystem(blobDir)
	if err != nil {
		test.Fatalf("blobs: %v", err)
	}

	cfg := Config{
		AllowedOrigins:  []string{"http://localhost:8080"},
		AdminSigningKey: testAdminSigningKey,
	}
	router, err := NewRouter(cfg, Services{
		Reservations: reservations,
		Catalog:      catalog,
		Accounts:     accounts,
		Sessions:     sessions,
		Blobs:        blobs,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		test.Fatalf("router: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config: %v", err)
	}
	harness := &webHarness{cfg: cfg, router: router, blobDir: blobDir}
	harness.seedCatalog(test)
	return harness
}

// seedCatalog builds one hotel with a single 100.00 room through the admin API.
func (harness *webHarness) seedCatalog(test *testing.T) {
	test.Helper()
	admin := harness.adminCookie(test, []string{"admin"})

	var facility struct {
		Facility facilityPayload `json:"facility"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/admin/facilities", map[string]any{"name": "Wi-Fi", "icon": "wifi"}, admin), http.StatusCreated, &facility)

	var hotel struct {
		Hotel hotelPayload `json:"hotel"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/admin/hotels", map[string]any{
		"name":         "Hotel Melati",
		"address":      "Jl. Melati 1",
		"region":       "JAKARTA",
		"star_rating":  4,
		"facility_ids": []uint64{facility.Facility.ID},
	}, admin), http.StatusCreated, &hotel)
	harness.hotel = hotel.Hotel

	var roomType struct {
		RoomType roomTypePayload `json:"room_type"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/admin/room-types", map[string]any{
		"hotel_id":   hotel.Hotel.ID,
		"name":       "Deluxe",
		"base_price": "100.00",
	}, admin), http.StatusCreated, &roomType)

	var room struct {
		Room roomPayload `json:"room"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/admin/rooms", map[string]any{
		"hotel_id":     hotel.Hotel.ID,
		"room_type_id": roomType.RoomType.ID,
		"number":       "101",
	}, admin), http.StatusCreated, &room)
	harness.room = room.Room
}

func (harness *webHarness) do(test *testing.T, method string, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	test.Helper()
	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(typed)
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			test.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func (harness *webHarness) upload(test *testing.T, target string, fields map[string]string, fileField string, content []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	test.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			test.Fatalf("write field: %v", err)
		}
	}
	if content != nil {
		part, err := writer.CreateFormFile(fileField, "proof.png")
		if err != nil {
			test.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			test.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		test.Fatalf("close multipart: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, target, &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func (harness *webHarness) mustDecode(test *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, target any) {
	test.Helper()
	if recorder.Code != expectedStatus {
		test.Fatalf("expected status %d, got %d: %s", expectedStatus, recorder.Code, recorder.Body.String())
	}
	if target == nil {
		return
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		test.Fatalf("decode failed: %v (%s)", err, recorder.Body.String())
	}
}

func (harness *webHarness) adminCookie(test *testing.T, roles []string) *http.Cookie {
	test.Helper()
	claims := &sessionvalidator.Claims{
		UserID:          "front-desk",
		UserEmail:       "front-desk@example.com",
		UserDisplayName: "Front Desk",
		UserRoles:       roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    harness.cfg.AdminIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testAdminSigningKey))
	if err != nil {
		test.Fatalf("token signing failed: %v", err)
	}
	return &http.Cookie{Name: harness.cfg.AdminCookieName, Value: signed}
}

// registerAndLogin creates a customer account and returns its session cookie.
func (harness *webHarness) registerAndLogin(test *testing.T, username string) *http.Cookie {
	test.Helper()
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/auth/register", map[string]any{
		"username":              username,
		"email":                 username + "@example.com",
		"first_name":            "Rina",
		"last_name":             "Wijaya",
		"password":              testPassword,
		"password_confirmation": testPassword,
		"phone":                 "081234567",
		"gender":                "F",
	}), http.StatusCreated, nil)

	recorder := harness.do(test, http.MethodPost, "/auth/login", map[string]any{"username": username, "password": testPassword})
	var login struct {
		Redirect string `json:"redirect"`
	}
	harness.mustDecode(test, recorder, http.StatusOK, &login)
	if login.Redirect != booking.RedirectCustomer {
		test.Fatalf("expected customer redirect, got %q", login.Redirect)
	}
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == harness.cfg.SessionCookieName && cookie.Value != "" {
			return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
		}
	}
	test.Fatalf("login did not set %s", harness.cfg.SessionCookieName)
	return nil
}

func (harness *webHarness) reservationBody(checkIn string, checkOut string) map[string]any {
	return map[string]any{
		"hotel_id":   harness.hotel.ID,
		"room_id":    harness.room.ID,
		"check_in":   checkIn,
		"check_out":  checkOut,
		"first_name": "Rina",
		"last_name":  "Wijaya",
		"email":      "rina@example.com",
		"phone":      "081234567",
	}
}

func (harness *webHarness) book(test *testing.T, customer *http.Cookie, checkIn string, checkOut string) reservationPayload {
	test.Helper()
	var created reservationEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/reservations", harness.reservationBody(checkIn, checkOut), customer), http.StatusCreated, &created)
	return created.Reservation
}

func TestReservationLifecycleOverHTTP(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")
	admin := harness.adminCookie(test, []string{"admin"})

	var quote struct {
		Quote quotePayload `json:"quote"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodGet, fmt.Sprintf("/rooms/%d/quote?check_in=2024-02-10&check_out=2024-02-12", harness.room.ID), nil), http.StatusOK, &quote)
	if quote.Quote.Total != "220.00" || quote.Quote.Nights != 2 || !quote.Quote.Available {
		test.Fatalf("unexpected quote %+v", quote.Quote)
	}

	reservation := harness.book(test, customer, "2024-02-10", "2024-02-12")
	if reservation.TotalPrice != "220.00" || reservation.Status != booking.StatusPending.String() {
		test.Fatalf("unexpected reservation %+v", reservation)
	}

	var conflict errorEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/reservations", harness.reservationBody("2024-02-11", "2024-02-13"), customer), http.StatusConflict, &conflict)
	if conflict.Error.Code != "room_unavailable" {
		test.Fatalf("expected room_unavailable, got %q", conflict.Error.Code)
	}
	harness.book(test, customer, "2024-02-12", "2024-02-14")

	paymentPath := fmt.Sprintf("/reservations/%d/payment", reservation.ID)
	var payment struct {
		Payment paymentPayload `json:"payment"`
	}
	harness.mustDecode(test, harness.upload(test, paymentPath, map[string]string{"method": "BANK_TRANSFER"}, "proof", pngHeader, customer), http.StatusOK, &payment)
	if !payment.Payment.IsPaid || !payment.Payment.HasProof {
		test.Fatalf("unexpected payment %+v", payment.Payment)
	}
	var duplicate errorEnvelope
	harness.mustDecode(test, harness.upload(test, paymentPath, map[string]string{"method": "E_WALLET"}, "proof", pngHeader, customer), http.StatusConflict, &duplicate)
	if duplicate.Error.Code != "payment_already_recorded" {
		test.Fatalf("expected payment_already_recorded, got %q", duplicate.Error.Code)
	}

	reviewPath := fmt.Sprintf("/reservations/%d/review", reservation.ID)
	var early errorEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, reviewPath, map[string]any{"rating": 4}, customer), http.StatusConflict, &early)
	if early.Error.Code != "review_not_allowed" {
		test.Fatalf("expected review_not_allowed, got %q", early.Error.Code)
	}

	statusPath := fmt.Sprintf("/admin/reservations/%d/status", reservation.ID)
	for _, target := range []booking.ReservationStatus{booking.StatusCheckedIn, booking.StatusCheckedOut} {
		var transitioned reservationEnvelope
		harness.mustDecode(test, harness.do(test, http.MethodPost, statusPath, map[string]any{"status": target.String()}, admin), http.StatusOK, &transitioned)
		if transitioned.Reservation.Status != target.String() {
			test.Fatalf("expected %s, got %s", target, transitioned.Reservation.Status)
		}
	}
	var forbidden errorEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, statusPath, map[string]any{"status": "CANCELLED"}, admin), http.StatusConflict, &forbidden)
	if forbidden.Error.Code != "forbidden_transition" {
		test.Fatalf("expected forbidden_transition, got %q", forbidden.Error.Code)
	}

	harness.mustDecode(test, harness.do(test, http.MethodPost, reviewPath, map[string]any{"rating": 4, "comment": "Clean rooms"}, customer), http.StatusCreated, nil)
	var hotel struct {
		Hotel hotelPayload `json:"hotel"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodGet, fmt.Sprintf("/hotels/%d", harness.hotel.ID), nil), http.StatusOK, &hotel)
	if hotel.Hotel.AverageRating != 4 {
		test.Fatalf("expected average rating 4, got %v", hotel.Hotel.AverageRating)
	}

	proof := harness.do(test, http.MethodGet, fmt.Sprintf("/admin/payments/%d/proof", reservation.ID), nil, admin)
	if proof.Code != http.StatusOK || proof.Header().Get("Content-Type") != "image/png" || !bytes.Equal(proof.Body.Bytes(), pngHeader) {
		test.Fatalf("unexpected proof response %d %q", proof.Code, proof.Header().Get("Content-Type"))
	}
}

// storedProofs counts the payment proof objects written to the blob directory.
func (harness *webHarness) storedProofs(test *testing.T) int {
	test.Helper()
	count := 0
	err := filepath.WalkDir(filepath.Join(harness.blobDir, blob.FolderPaymentProofs), func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			count++
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		test.Fatalf("walk blob dir: %v", err)
	}
	return count
}

func TestPaymentProofIsOptional(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")
	reservation := harness.book(test, customer, "2024-02-10", "2024-02-12")

	var payment struct {
		Payment paymentPayload `json:"payment"`
	}
	paymentPath := fmt.Sprintf("/reservations/%d/payment", reservation.ID)
	harness.mustDecode(test, harness.upload(test, paymentPath, map[string]string{"method": "E_WALLET"}, "", nil, customer), http.StatusOK, &payment)
	if !payment.Payment.IsPaid || payment.Payment.HasProof {
		test.Fatalf("unexpected payment %+v", payment.Payment)
	}
	if stored := harness.storedProofs(test); stored != 0 {
		test.Fatalf("expected no stored proofs, got %d", stored)
	}
}

func TestRejectedPaymentStoresNoProof(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")
	paid := harness.book(test, customer, "2024-02-10", "2024-02-12")
	cancelled := harness.book(test, customer, "2024-02-20", "2024-02-21")

	paymentPath := fmt.Sprintf("/reservations/%d/payment", paid.ID)
	if response := harness.upload(test, paymentPath, map[string]string{"method": "BANK_TRANSFER"}, "proof", pngHeader, customer); response.Code != http.StatusOK {
		test.Fatalf("first payment: %d %s", response.Code, response.Body.String())
	}
	if response := harness.do(test, http.MethodPost, fmt.Sprintf("/reservations/%d/cancel", cancelled.ID), nil, customer); response.Code != http.StatusOK {
		test.Fatalf("cancel: %d %s", response.Code, response.Body.String())
	}

	testCases := []struct {
		name          string
		reservationID uint64
		expectedCode  string
	}{
		{name: "already paid", reservationID: paid.ID, expectedCode: "payment_already_recorded"},
		{name: "cancelled", reservationID: cancelled.ID, expectedCode: "forbidden_transition"},
	}
	for _, testCase := range testCases {
		var rejected errorEnvelope
		harness.mustDecode(test, harness.upload(test, fmt.Sprintf("/reservations/%d/payment", testCase.reservationID), map[string]string{"method": "E_WALLET"}, "proof", pngHeader, customer), http.StatusConflict, &rejected)
		if rejected.Error.Code != testCase.expectedCode {
			test.Fatalf("%s: expected %s, got %q", testCase.name, testCase.expectedCode, rejected.Error.Code)
		}
	}
	if stored := harness.storedProofs(test); stored != 1 {
		test.Fatalf("expected only the accepted proof to be stored, got %d", stored)
	}
}

func TestForeignAndMissingReservationsLookAlike(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	owner := harness.registerAndLogin(test, "rina")
	stranger := harness.registerAndLogin(test, "budi")
	reservation := harness.book(test, owner, "2024-02-10", "2024-02-12")

	foreign := harness.do(test, http.MethodGet, fmt.Sprintf("/reservations/%d", reservation.ID), nil, stranger)
	missing := harness.do(test, http.MethodGet, "/reservations/999999", nil, stranger)
	if foreign.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		test.Fatalf("expected 404 for both, got %d and %d", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		test.Fatalf("responses differ: %s vs %s", foreign.Body.String(), missing.Body.String())
	}

	payment := harness.upload(test, fmt.Sprintf("/reservations/%d/payment", reservation.ID), map[string]string{"method": "BANK_TRANSFER"}, "proof", pngHeader, stranger)
	if payment.Code != http.StatusNotFound {
		test.Fatalf("expected 404 paying for a foreign reservation, got %d", payment.Code)
	}
}

func TestValidationFailuresReportFields(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")

	testCases := []struct {
		name          string
		mutate        func(map[string]any)
		expectedField string
	}{
		{name: "non digit phone", mutate: func(body map[string]any) { body["phone"] = "08-1234" }, expectedField: "phone"},
		{name: "check out before check in", mutate: func(body map[string]any) { body["check_out"] = "2024-02-09" }, expectedField: "check_out"},
		{name: "check in in the past", mutate: func(body map[string]any) { body["check_in"] = "2023-12-30" }, expectedField: "check_in"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			body := harness.reservationBody("2024-02-10", "2024-02-12")
			testCase.mutate(body)
			var envelope errorEnvelope
			harness.mustDecode(test, harness.do(test, http.MethodPost, "/reservations", body, customer), http.StatusUnprocessableEntity, &envelope)
			if envelope.Error.Code != errorCodeInvalidInput {
				test.Fatalf("expected %s, got %q", errorCodeInvalidInput, envelope.Error.Code)
			}
			if _, ok := envelope.Error.Fields[testCase.expectedField]; !ok {
				test.Fatalf("expected field %q in %v", testCase.expectedField, envelope.Error.Fields)
			}
		})
	}
}

func TestAdminRoutesRequireConsoleRole(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")

	testCases := []struct {
		name           string
		cookies        []*http.Cookie
		expectedStatus int
	}{
		{name: "anonymous", expectedStatus: http.StatusUnauthorized},
		{name: "customer session", cookies: []*http.Cookie{customer}, expectedStatus: http.StatusUnauthorized},
		{name: "console without role", cookies: []*http.Cookie{harness.adminCookie(test, []string{"viewer"})}, expectedStatus: http.StatusForbidden},
		{name: "console admin", cookies: []*http.Cookie{harness.adminCookie(test, []string{"admin"})}, expectedStatus: http.StatusOK},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			recorder := harness.do(test, http.MethodGet, "/admin/reservations", nil, testCase.cookies...)
			if recorder.Code != testCase.expectedStatus {
				test.Fatalf("expected %d, got %d: %s", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestBulkTransitionReportsPerReservation(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")
	admin := harness.adminCookie(test, []string{"admin"})

	pending := harness.book(test, customer, "2024-02-10", "2024-02-12")
	cancelled := harness.book(test, customer, "2024-03-10", "2024-03-12")
	harness.mustDecode(test, harness.do(test, http.MethodPost, fmt.Sprintf("/reservations/%d/cancel", cancelled.ID), nil, customer), http.StatusOK, nil)

	var bulk bulkEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/admin/reservations/bulk-status", map[string]any{
		"reservation_ids": []uint64{pending.ID, cancelled.ID, 424242},
		"status":          "PAID",
	}, admin), http.StatusOK, &bulk)

	if bulk.Applied != 1 || len(bulk.Results) != 3 {
		test.Fatalf("unexpected bulk response %+v", bulk)
	}
	expected := map[uint64]booking.TransitionOutcome{
		pending.ID:   booking.OutcomeApplied,
		cancelled.ID: booking.OutcomeSkippedInvalidSource,
		424242:       booking.OutcomeNotFound,
	}
	for _, result := range bulk.Results {
		if booking.TransitionOutcome(result.Outcome) != expected[result.ReservationID] {
			test.Fatalf("reservation %d: expected %s, got %s", result.ReservationID, expected[result.ReservationID], result.Outcome)
		}
	}

	var filtered struct {
		Reservations []reservationPayload `json:"reservations"`
	}
	harness.mustDecode(test, harness.do(test, http.MethodGet, "/admin/reservations?status=PAID,CHECKED_IN", nil, admin), http.StatusOK, &filtered)
	if len(filtered.Reservations) != 1 || filtered.Reservations[0].ID != pending.ID {
		test.Fatalf("unexpected filtered reservations %+v", filtered.Reservations)
	}
}

func TestLogoutInvalidatesSessionCookie(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	customer := harness.registerAndLogin(test, "rina")

	harness.mustDecode(test, harness.do(test, http.MethodGet, "/me", nil, customer), http.StatusOK, nil)
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/auth/logout", nil, customer), http.StatusOK, nil)

	var envelope errorEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodGet, "/me", nil, customer), http.StatusUnauthorized, &envelope)
	if envelope.Error.Code != "unauthorized" {
		test.Fatalf("expected unauthorized, got %q", envelope.Error.Code)
	}
}

func TestLoginRejectsWrongPassword(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	harness.registerAndLogin(test, "rina")

	var envelope errorEnvelope
	harness.mustDecode(test, harness.do(test, http.MethodPost, "/auth/login", map[string]any{"username": "rina", "password": "wrong-password"}), http.StatusUnauthorized, &envelope)
	if envelope.Error.Code != "invalid_credentials" {
		test.Fatalf("expected invalid_credentials, got %q", envelope.Error.Code)
	}
}

func TestGalleryMediaHidesPaymentProofs(test *testing.T) {
	test.Parallel()
	harness := newWebHarness(test)
	admin := harness.adminCookie(test, []string{"admin"})

	var uploaded struct {
		Image galleryImagePayload `json:"image"`
	}
	harness.mustDecode(test, harness.upload(test, fmt.Sprintf("/admin/hotels/%d/gallery", harness.hotel.ID), map[string]string{"caption": "Lobby"}, "image", pngHeader, admin), http.StatusCreated, &uploaded)

	media := harness.do(test, http.MethodGet, uploaded.Image.URL, nil)
	if media.Code != http.StatusOK || !bytes.Equal(media.Body.Bytes(), pngHeader) {
		test.Fatalf("expected gallery image, got %d", media.Code)
	}
	hidden := harness.do(test, http.MethodGet, "/media/"+blob.FolderPaymentProofs+"/anything.png", nil)
	if hidden.Code != http.StatusNotFound {
		test.Fatalf("expected 404 for payment proof path, got %d", hidden.Code)
	}

	var rejected errorEnvelope
	harness.mustDecode(test, harness.upload(test, fmt.Sprintf("/admin/hotels/%d/gallery", harness.hotel.ID), nil, "image", []byte("plain text"), admin), http.StatusUnsupportedMediaType, &rejected)
}
