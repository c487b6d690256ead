package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"weather_favorites/internal/models"
	"weather_favorites/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	RegisterFn       func(ctx context.Context, in models.RegisterInput) (service.Session, error)
	LoginFn          func(ctx context.Context, in models.LoginInput) (service.Session, error)
	LogoutFn         func(ctx context.Context, userID int) error
	ChangePasswordFn func(ctx context.Context, userID int, in models.ChangePasswordInput) error
	MeFn             func(ctx context.Context, userID int) (models.PublicUser, error)
	UpdateUserFn     func(ctx context.Context, userID int, in models.UpdateUserInput) (models.PublicUser, error)

	// tokens maps a bearer token to its principal; anything else is rejected.
	tokens          map[string]service.Principal
	verifyErr       error
	lastVerifyToken string
}

func (m *mockAuth) Register(ctx context.Context, in models.RegisterInput) (service.Session, error) {
	return m.RegisterFn(ctx, in)
}

func (m *mockAuth) Login(ctx context.Context, in models.LoginInput) (service.Session, error) {
	return m.LoginFn(ctx, in)
}

func (m *mockAuth) Logout(ctx context.Context, userID int) error {
	return m.LogoutFn(ctx, userID)
}

func (m *mockAuth) ChangePassword(ctx context.Context, userID int, in models.ChangePasswordInput) error {
	return m.ChangePasswordFn(ctx, userID, in)
}

func (m *mockAuth) VerifySession(_ context.Context, token string) (service.Principal, error) {
	m.lastVerifyToken = token
	if m.verifyErr != nil {
		return service.Principal{}, m.verifyErr
	}
	p, ok := m.tokens[token]
	if !ok {
		return service.Principal{}, &service.Error{Kind: service.ErrAuth, Msg: "Invalid token"}
	}
	return p, nil
}

func (m *mockAuth) Me(ctx context.Context, userID int) (models.PublicUser, error) {
	return m.MeFn(ctx, userID)
}

func (m *mockAuth) UpdateUser(ctx context.Context, userID int, in models.UpdateUserInput) (models.PublicUser, error) {
	return m.UpdateUserFn(ctx, userID, in)
}

type mockLocations struct {
	ListFn   func(ctx context.Context, userID int) ([]models.Location, error)
	SaveFn   func(ctx context.Context, in models.CreateLocationInput) (models.Location, bool, error)
	DeleteFn func(ctx context.Context, id, userID int) (bool, error)

	lastCtx context.Context
}

func (m *mockLocations) List(ctx context.Context, userID int) ([]models.Location, error) {
	m.lastCtx = ctx
	return m.ListFn(ctx, userID)
}

func (m *mockLocations) Save(ctx context.Context, in models.CreateLocationInput) (models.Location, bool, error) {
	m.lastCtx = ctx
	return m.SaveFn(ctx, in)
}

func (m *mockLocations) Delete(ctx context.Context, id, userID int) (bool, error) {
	m.lastCtx = ctx
	return m.DeleteFn(ctx, id, userID)
}

type mockWeather struct {
	ForecastFn func(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	SearchFn   func(ctx context.Context, q string) (json.RawMessage, error)
}

func (m *mockWeather) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	return m.ForecastFn(ctx, lat, lon)
}

func (m *mockWeather) Search(ctx context.Context, q string) (json.RawMessage, error) {
	return m.SearchFn(ctx, q)
}

type mockAdvisor struct {
	AdviseFn  func(ctx context.Context, in models.AdviceInput) (string, error)
	questions []service.QuestionCategory
}

func (m *mockAdvisor) Advise(ctx context.Context, in models.AdviceInput) (string, error) {
	return m.AdviseFn(ctx, in)
}

func (m *mockAdvisor) Questions() []service.QuestionCategory { return m.questions }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// doJSON performs a request against r with an optional JSON body and headers.
func doJSON(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Message string `json:"message"`
	}
	decodeBody(t, w, &out)
	return out.Message
}

func kindErr(kind error, msg string) error {
	return &service.Error{Kind: kind, Msg: msg}
}
