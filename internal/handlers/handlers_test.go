package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/handlers"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/server"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

const jwtSecret = "test-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  storage.Store
}

func newTestServer(t *testing.T, paymentSecret string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	cfg := &config.Config{
		BatchStore:        config.StoreMemory,
		JWTSecret:         jwtSecret,
		PaymentSecret:     paymentSecret,
		MaxTicketsPerType: 10,
		QRSize:            256,
	}
	st, err := server.NewState(cfg, store, nil, zerolog.Nop())
	require.NoError(t, err)

	return &testServer{t: t, router: server.NewRouter(st), store: store}
}

func (s *testServer) do(method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type bookingBody struct {
	ID           uuid.UUID `json:"id"`
	State        string    `json:"state"`
	TotalTickets int       `json:"total_tickets"`
	TotalPrice   string    `json:"total_price"`
}

type ticketBody struct {
	TicketNumber  string `json:"ticket_number"`
	EventTitle    string `json:"event_title"`
	TransactionID string `json:"transaction_id"`
	TicketType    string `json:"ticket_type"`
	Status        string `json:"status"`
	QRCode        string `json:"qr_code"`
	QRDegraded    bool   `json:"qr_degraded"`
	Filename      string `json:"filename"`
	DownloadURL   string `json:"download_url"`
	QRImageURL    string `json:"qr_image_url"`
}

type batchBody struct {
	TransactionID string       `json:"transaction_id"`
	Replayed      bool         `json:"replayed"`
	Tickets       []ticketBody `json:"tickets"`
}

type verifyBody struct {
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason"`
	TicketNumber string `json:"ticket_number"`
}

// confirmBooking books general and vip tickets for Summer Jazz Night.
func (s *testServer) confirmBooking(general, vip int) uuid.UUID {
	s.t.Helper()

	w := s.do(http.MethodPost, "/v1/bookings", gin.H{"event_id": "1"}, nil)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[bookingBody](s.t, w)
	assert.Equal(s.t, "selecting", b.State)

	path := "/v1/bookings/" + b.ID.String()
	for ticketType, n := range map[string]int{"general": general, "vip": vip} {
		w = s.do(http.MethodPost, path+"/selection", gin.H{"ticket_type": ticketType, "action": "set", "quantity": n}, nil)
		require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, path+"/confirm", nil, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.t, "confirmed", decode[bookingBody](s.t, w).State)

	return b.ID
}

func (s *testServer) pay(bookingID uuid.UUID, tx string, count int) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/v1/bookings/"+bookingID.String()+"/payment-success", gin.H{
		"transaction_id":     tx,
		"event_title":        "Summer Jazz Night",
		"total_ticket_count": count,
	}, nil)
}

func organizerHeader(t *testing.T) http.Header {
	t.Helper()
	token, err := handlers.SignToken(jwtSecret, models.User{
		ID:   uuid.New(),
		Role: models.Role{Name: models.RoleOrganizer},
	}, time.Now())
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodGet, "/v1/events?featured=true&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Events     []models.Event `json:"events"`
		Total      int            `json:"total"`
		TotalPages int            `json:"total_pages"`
	}](t, w)
	assert.Len(t, list.Events, 2)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.TotalPages)

	w = s.do(http.MethodGet, "/v1/events/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	event := decode[models.Event](t, w)
	require.Len(t, event.TicketTypes, 2)
	assert.Equal(t, "$100", event.TicketTypes[1].Price)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/events/99", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/events?page=0", nil, nil).Code)
}

func TestBooking_SelectionErrors(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodPost, "/v1/bookings", gin.H{"event_id": "1"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/v1/bookings/" + decode[bookingBody](t, w).ID.String()

	w = s.do(http.MethodPost, path+"/confirm", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, path+"/selection", gin.H{"ticket_type": "balcony", "action": "increment"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, path+"/selection", gin.H{"ticket_type": "general", "action": "double"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, path+"/selection", gin.H{"ticket_type": "general", "action": "set", "quantity": 50}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[bookingBody](t, w).TotalTickets)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/bookings/"+uuid.NewString(), nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/bookings/nope", nil, nil).Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, nil, nil).Code)
}

func TestPaymentSuccess_IssuesAndReplays(t *testing.T) {
	s := newTestServer(t, "")
	bookingID := s.confirmBooking(2, 1)

	w := s.pay(bookingID, "TXN42", 3)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	batch := decode[batchBody](t, w)
	require.Len(t, batch.Tickets, 3)
	assert.False(t, batch.Replayed)

	assert.Equal(t, "TK-TXN42-001", batch.Tickets[0].TicketNumber)
	assert.Equal(t, "general", batch.Tickets[0].TicketType)
	assert.Equal(t, "vip", batch.Tickets[2].TicketType)
	for _, ticket := range batch.Tickets {
		assert.Equal(t, "TXN42", ticket.TransactionID)
		assert.Equal(t, tickets.StatusConfirmed, ticket.Status)
		assert.True(t, strings.HasPrefix(ticket.QRCode, "data:image/png;base64,"))
		assert.False(t, ticket.QRDegraded)
		assert.Equal(t, "summer_jazz_night_ticket_"+ticket.TicketNumber+".html", ticket.Filename)
	}

	w = s.pay(bookingID, "TXN42", 3)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replay := decode[batchBody](t, w)
	assert.True(t, replay.Replayed)
	require.Len(t, replay.Tickets, 3)
	assert.Equal(t, batch.Tickets[2].TicketNumber, replay.Tickets[2].TicketNumber)

	w = s.do(http.MethodGet, "/v1/transactions/TXN42/tickets", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[batchBody](t, w).Tickets, 3)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/transactions/TXN0/tickets", nil, nil).Code)
}

func TestPaymentSuccess_TransactionBelongsToOneBooking(t *testing.T) {
	s := newTestServer(t, "")
	first := s.confirmBooking(2, 0)
	second := s.confirmBooking(0, 5)

	w := s.pay(first, "TXN1", 2)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.pay(second, "TXN1", 5)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/v1/bookings/"+second.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", decode[bookingBody](t, w).State)

	w = s.pay(first, "TXN1", 2)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[batchBody](t, w).Replayed)

	w = s.pay(first, "TXN2", 2)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.pay(second, "TXN2", 5)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	batch := decode[batchBody](t, w)
	require.Len(t, batch.Tickets, 5)
	for _, ticket := range batch.Tickets {
		assert.Equal(t, "vip", ticket.TicketType)
		assert.Equal(t, "TXN2", ticket.TransactionID)
	}
}

func TestPaymentSuccess_Rejections(t *testing.T) {
	s := newTestServer(t, "")
	bookingID := s.confirmBooking(1, 0)

	w := s.pay(bookingID, "TXN7", 4)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/v1/bookings/"+bookingID.String()+"/payment-success", gin.H{"event_title": "Summer Jazz Night"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/bookings/"+bookingID.String()+"/payment-success", gin.H{"transaction_id": "TXN7", "total_price": "$51"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.pay(uuid.New(), "TXN-unknown", 1)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/bookings", gin.H{"event_id": "1"}, nil)
	unconfirmed := decode[bookingBody](t, w).ID
	s.do(http.MethodPost, "/v1/bookings/"+unconfirmed.String()+"/selection", gin.H{"ticket_type": "general", "action": "increment"}, nil)
	assert.Equal(t, http.StatusConflict, s.pay(unconfirmed, "TXN8", 1).Code)
}

func TestPaymentSuccess_Signed(t *testing.T) {
	s := newTestServer(t, "webhook-secret")
	bookingID := s.confirmBooking(1, 0)

	path := "/v1/bookings/" + bookingID.String() + "/payment-success"
	body := gin.H{"transaction_id": "TXN9", "total_ticket_count": 1}

	w := s.do(http.MethodPost, path, body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	data, err := json.Marshal(body)
	require.NoError(t, err)
	header := http.Header{}
	for k, v := range helpers.NewPaymentSigner("webhook-secret").GetHeaders("req-9", time.Now(), path, data) {
		header.Set(k, v)
	}

	w = s.do(http.MethodPost, path, body, header)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestTicketDownloads(t *testing.T) {
	s := newTestServer(t, "")
	s.pay(s.confirmBooking(1, 0), "TXN42", 1)

	w := s.do(http.MethodGet, "/v1/tickets/TK-TXN42-001/download", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="summer_jazz_night_ticket_TK-TXN42-001.html"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Summer Jazz Night")
	assert.Contains(t, w.Body.String(), "TK-TXN42-001")

	w = s.do(http.MethodGet, "/v1/tickets/TK-TXN42-001/qr.png", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/tickets/TK-NONE-001/download", nil, nil).Code)
}

func TestVerifyTicket(t *testing.T) {
	s := newTestServer(t, "")
	s.pay(s.confirmBooking(1, 0), "TXN42", 1)

	payload, err := tickets.PayloadFor(tickets.Ticket{
		TicketNumber:  "TK-TXN42-001",
		EventTitle:    "Summer Jazz Night",
		TransactionID: "TXN42",
	}).Canonical()
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/v1/tickets/verify", gin.H{"qr_data": payload}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[verifyBody](t, w)
	assert.True(t, result.Valid)
	assert.Equal(t, "TK-TXN42-001", result.TicketNumber)

	w = s.do(http.MethodPost, "/v1/tickets/verify", gin.H{"qr_data": "not json"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result = decode[verifyBody](t, w)
	assert.False(t, result.Valid)
	assert.Equal(t, string(tickets.ReasonMalformedPayload), result.Reason)

	w = s.do(http.MethodPost, "/v1/tickets/verify", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyTicketImage(t *testing.T) {
	s := newTestServer(t, "")
	s.pay(s.confirmBooking(1, 0), "TXN42", 1)

	png := s.do(http.MethodGet, "/v1/tickets/TK-TXN42-001/qr.png", nil, nil).Body.Bytes()

	upload := func(data []byte) verifyBody {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "scan.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/tickets/verify-image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[verifyBody](t, w)
	}

	result := upload(png)
	assert.True(t, result.Valid)
	assert.Equal(t, "TK-TXN42-001", result.TicketNumber)

	// truncated: still sniffed as PNG, but not decodable
	result = upload(png[:len(png)/2])
	assert.False(t, result.Valid)
	assert.Equal(t, string(tickets.ReasonUnreadableImage), result.Reason)
}

func TestCheckIn(t *testing.T) {
	s := newTestServer(t, "")
	s.pay(s.confirmBooking(1, 0), "TXN42", 1)
	auth := organizerHeader(t)

	payloadFor := func(number, tx string) string {
		p, err := tickets.PayloadFor(tickets.Ticket{
			TicketNumber:  number,
			EventTitle:    "Summer Jazz Night",
			TransactionID: tx,
		}).Canonical()
		require.NoError(t, err)
		return p
	}

	w := s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": payloadFor("TK-TXN42-001", "TXN42")}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": payloadFor("TK-TXN42-001", "TXN42")}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": payloadFor("TK-TXN42-001", "TXN42")}, auth)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": payloadFor("TK-TXN99-001", "TXN99")}, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": payloadFor("TK-TXN42-001", "TXN43")}, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/check-in", gin.H{"qr_data": "{}"}, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodGet, "/v1/tickets/TK-TXN42-001/download", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tickets.StatusLabel(tickets.StatusRedeemed))

	w = s.do(http.MethodGet, "/v1/dashboard", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	dashboard := decode[struct {
		Events int            `json:"events"`
		Issued storage.Stats  `json:"issued"`
		Open   map[string]int `json:"bookings"`
	}](t, w)
	assert.Equal(t, 5, dashboard.Events)
	assert.Equal(t, storage.Stats{Batches: 1, Tickets: 1, Redeemed: 1}, dashboard.Issued)
	assert.Equal(t, 0, dashboard.Open["confirmed"])
}

func TestAuthRoutesNeedDatabase(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(http.MethodPost, "/v1/login", gin.H{"email": "a@b.co", "password": "secret"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", nil, nil).Code)
}
