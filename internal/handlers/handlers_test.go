package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"transport-register/internal/docstore"
	"transport-register/internal/metrics"
	"transport-register/internal/models"
	"transport-register/internal/repository"
	"transport-register/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminPassword = "shepherd"
	validWallet   = "0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"
)

type APISuite struct {
	suite.Suite
	mem       *docstore.Memory
	store     docstore.Store
	hub       *services.WSHub
	scheduler *services.DeleteScheduler
	server    *httptest.Server
}

func (s *APISuite) SetupTest() {
	s.mem = docstore.NewMemory()
	m := metrics.New()
	s.store = docstore.Instrument(s.mem, m)
	s.hub = services.NewWSHub()
	s.scheduler = services.NewDeleteScheduler()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	regRepo := repository.NewRegistrationRepository(s.store, "church", "registrations", 3)
	walletRepo := repository.NewWalletRepository(s.store, "church", "wallets", 3)

	router := NewRouter(RouterDeps{
		Registrations: services.NewRegistrationService(regRepo, services.RegistrationOptions{
			PageSize:    5,
			Broadcaster: s.hub,
			Metrics:     m,
		}),
		Wallets: services.NewWalletService(walletRepo, s.scheduler, time.Minute, s.hub, m),
		Auth:    services.NewAuthService(string(hash), "test-secret", time.Hour),
		Hub:     s.hub,
		Metrics: m.Handler(),
	})
	s.server = httptest.NewServer(router)
}

func (s *APISuite) TearDownTest() {
	s.hub.CloseAll()
	s.server.Close()
	s.scheduler.Close()
}

func (s *APISuite) do(method, path, token string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *APISuite) decode(resp *http.Response, v any) {
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func (s *APISuite) login() string {
	resp := s.do(http.MethodPost, "/api/v1/admin/login", "", LoginRequest{Password: adminPassword})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var tok services.Token
	s.decode(resp, &tok)
	return tok.Token
}

func (s *APISuite) register(name string) models.Registration {
	resp := s.do(http.MethodPost, "/api/v1/registrations", "", models.RegistrationFields{
		FullName:            name,
		Location:            "Tema",
		PhoneNumber:         "0201234567",
		WorshippersToChurch: 1,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var reg models.Registration
	s.decode(resp, &reg)
	return reg
}

func (s *APISuite) TestCreateAndListRegistrations() {
	for i := 0; i < 6; i++ {
		s.register("Member")
	}

	resp := s.do(http.MethodGet, "/api/v1/registrations?page=2", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var page models.Page[models.Registration]
	s.decode(resp, &page)
	s.Equal(6, page.Total)
	s.Equal(2, page.Page)
	s.Equal(2, page.TotalPages)
	s.Len(page.Items, 1)
	s.True(page.HasPrev)
	s.False(page.HasNext)
}

func (s *APISuite) TestListShowsOlderRecordsUnlessRecentRequested() {
	s.mem.SetClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	s.register("Last Sunday")
	s.mem.SetClock(time.Now)
	s.register("Today")

	resp := s.do(http.MethodGet, "/api/v1/registrations", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var page models.Page[models.Registration]
	s.decode(resp, &page)
	s.Equal(2, page.Total)

	resp = s.do(http.MethodGet, "/api/v1/registrations?recent=true", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var recent models.Page[models.Registration]
	s.decode(resp, &recent)
	s.Require().Equal(1, recent.Total)
	s.Equal("Today", recent.Items[0].FullName)
}

func (s *APISuite) TestListPageSizeBounds() {
	for _, raw := range []string{"0", "-3", "abc"} {
		resp := s.do(http.MethodGet, "/api/v1/registrations?page_size="+raw, "", nil)
		s.Equal(http.StatusBadRequest, resp.StatusCode, raw)
	}

	s.register("Member")
	resp := s.do(http.MethodGet, "/api/v1/registrations?page_size=9223372036854775807", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var page models.Page[models.Registration]
	s.decode(resp, &page)
	s.Equal(services.MaxPageSize, page.PageSize)
	s.Equal(1, page.TotalPages)
	s.Len(page.Items, 1)
}

func (s *APISuite) TestListRejectsBadRecentFlag() {
	resp := s.do(http.MethodGet, "/api/v1/registrations?recent=maybe", "", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestCreateRegistrationValidation() {
	resp := s.do(http.MethodPost, "/api/v1/registrations", "", models.RegistrationFields{
		FullName:            "Ama",
		PhoneNumber:         "12",
		WorshippersToChurch: 101,
	})
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	s.decode(resp, &body)
	s.Equal("validation failed", body.Error)

	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	s.ElementsMatch([]string{"location", "phoneNumber", "worshippersToChurch"}, fields)
}

func (s *APISuite) TestCreateRegistrationRejectsUnknownFields() {
	resp := s.do(http.MethodPost, "/api/v1/registrations", "", map[string]any{"fullName": "Ama", "church": "x"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestSignOut() {
	reg := s.register("Kwame")

	resp := s.do(http.MethodPatch, "/api/v1/registrations/"+reg.ID+"/sign-out", "", models.SignOutFields{WorshippersFromChurch: 3})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var updated models.Registration
	s.decode(resp, &updated)
	s.Equal(3, updated.WorshippersFromChurch)
	s.Equal("Kwame", updated.FullName)

	resp = s.do(http.MethodPatch, "/api/v1/registrations/nope/sign-out", "", models.SignOutFields{WorshippersFromChurch: 1})
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestAdminRoutesRequireToken() {
	reg := s.register("Esi")

	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/api/v1/registrations/" + reg.ID},
		{http.MethodGet, "/api/v1/registrations/export"},
		{http.MethodGet, "/api/v1/registrations/export.csv"},
		{http.MethodGet, "/api/v1/wallets"},
		{http.MethodDelete, "/api/v1/wallets/any"},
	} {
		resp := s.do(tc.method, tc.path, "", nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode, tc.path)
	}
}

func (s *APISuite) TestLoginRejectsWrongPassword() {
	resp := s.do(http.MethodPost, "/api/v1/admin/login", "", LoginRequest{Password: "wolf"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *APISuite) TestAdminDeleteRegistration() {
	reg := s.register("Yaw")
	token := s.login()

	resp := s.do(http.MethodDelete, "/api/v1/registrations/"+reg.ID, token, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodDelete, "/api/v1/registrations/"+reg.ID, token, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestExportWithoutSink() {
	resp := s.do(http.MethodGet, "/api/v1/registrations/export", s.login(), nil)
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func (s *APISuite) TestExportCSV() {
	s.register("Abena")
	s.register("Kojo")

	resp := s.do(http.MethodGet, "/api/v1/registrations/export.csv", s.login(), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.True(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))

	rows, err := csv.NewReader(resp.Body).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal("ID", rows[0][0])
}

func (s *APISuite) TestWalletLifecycle() {
	resp := s.do(http.MethodPost, "/api/v1/wallets", "", models.WalletFields{WalletAddress: "0x123"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/wallets", "", models.WalletFields{WalletAddress: validWallet})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var w models.WalletAddress
	s.decode(resp, &w)
	s.Equal(1, s.scheduler.Pending())

	token := s.login()
	resp = s.do(http.MethodGet, "/api/v1/wallets", token, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var list struct {
		Wallets []models.WalletAddress `json:"wallets"`
		Total   int                    `json:"total"`
	}
	s.decode(resp, &list)
	s.Equal(1, list.Total)

	resp = s.do(http.MethodDelete, "/api/v1/wallets/"+w.ID, token, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Equal(0, s.scheduler.Pending())
}

func (s *APISuite) TestWebSocketReceivesEvents() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	var welcome services.WSMessage
	s.Require().NoError(conn.ReadJSON(&welcome))
	s.Equal("connected", welcome.Type)

	reg := s.register("Adjoa")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event services.WSMessage
	s.Require().NoError(conn.ReadJSON(&event))
	s.Equal(services.EventRegistrationCreated, event.Type)
	s.Equal(reg.ID, event.ID)
}

func (s *APISuite) TestHealthAndMetrics() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.register("Efua")
	resp = s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Contains(buf.String(), "transport_register_registrations_created_total 1")
	s.Contains(buf.String(), `transport_register_store_calls_total{operation="create",outcome="ok"} 1`)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

// brokenStore fails every list call the way an unreachable remote would
type brokenStore struct {
	docstore.Memory
}

func (b *brokenStore) ListDocuments(context.Context, string, string, ...docstore.Query) (*docstore.DocumentList, error) {
	return nil, &docstore.Error{Code: 503, Message: "service unavailable"}
}

func TestRemoteFailureIs502(t *testing.T) {
	repo := repository.NewRegistrationRepository(&brokenStore{}, "db", "col", 0)
	router := NewRouter(RouterDeps{
		Registrations: services.NewRegistrationService(repo, services.RegistrationOptions{}),
		Auth:          services.NewAuthService("", "secret", time.Hour),
		Hub:           services.NewWSHub(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/registrations", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "remote call failed", body.Error)
}

func TestForgedTokenRejectedWhenLoginDisabled(t *testing.T) {
	scheduler := services.NewDeleteScheduler()
	defer scheduler.Close()
	mem := docstore.NewMemory()
	router := NewRouter(RouterDeps{
		Registrations: services.NewRegistrationService(
			repository.NewRegistrationRepository(mem, "db", "registrations", 0), services.RegistrationOptions{}),
		Wallets: services.NewWalletService(
			repository.NewWalletRepository(mem, "db", "wallets", 0), scheduler, time.Minute, nil, nil),
		Auth: services.NewAuthService("", "", time.Hour),
		Hub:  services.NewWSHub(),
	})

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "coordinator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(""))
	require.NoError(t, err)

	for _, path := range []string{"/api/v1/wallets", "/api/v1/registrations/export.csv"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminDeletionIsAttributed(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	mem := docstore.NewMemory()
	auth := services.NewAuthService(string(hash), "0123456789abcdef0123456789abcdef", time.Hour)
	registrations := services.NewRegistrationService(
		repository.NewRegistrationRepository(mem, "db", "registrations", 0), services.RegistrationOptions{})
	router := NewRouter(RouterDeps{
		Registrations: registrations,
		Auth:          auth,
		Hub:           services.NewWSHub(),
	})

	reg, err := registrations.Submit(context.Background(), models.RegistrationFields{
		FullName:            "Kofi",
		Location:            "Tema",
		PhoneNumber:         "0201234567",
		WorshippersToChurch: 1,
	})
	require.NoError(t, err)
	token, err := auth.GenerateJWT()
	require.NoError(t, err)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/registrations/"+reg.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, buf.String(), `"registration_id":"`+reg.ID+`","admin":"coordinator"`)
}
