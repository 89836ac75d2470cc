package management

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/traylinx/integrationhub/internal/modeltest"
	"github.com/traylinx/integrationhub/internal/provider"
	"github.com/traylinx/integrationhub/internal/registry"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Get(ctx context.Context, id string) (registry.Entry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(registry.Entry), args.Error(1)
}

func (m *MockRegistry) Add(ctx context.Context, name, credential string, opts ...registry.AddOption) (registry.Entry, error) {
	args := m.Called(ctx, name, credential)
	return args.Get(0).(registry.Entry), args.Error(1)
}

func (m *MockRegistry) Update(ctx context.Context, id string, fields registry.Fields) (registry.Entry, error) {
	args := m.Called(ctx, id, fields)
	return args.Get(0).(registry.Entry), args.Error(1)
}

func (m *MockRegistry) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRegistry) LoadAllStrict(ctx context.Context) ([]registry.Entry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]registry.Entry)
	return entries, args.Error(1)
}

type MockTester struct {
	mock.Mock
}

func (m *MockTester) StartTest(ctx context.Context, providerName, modelID, prompt string) (string, error) {
	args := m.Called(ctx, providerName, modelID, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockTester) StartTestAsync(providerName, modelID, prompt string) uint64 {
	return m.Called(providerName, modelID, prompt).Get(0).(uint64)
}

func (m *MockTester) State() modeltest.State {
	return m.Called().Get(0).(modeltest.State)
}

func (m *MockTester) Reset() { m.Called() }

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/apis", h.ListAPIs)
	r.GET("/apis/:id", h.GetAPI)
	r.DELETE("/apis/:id", h.DeleteAPI)
	r.POST("/model-test", h.StartModelTest)
	r.GET("/health", h.GetHealth)
	r.POST("/health/check", h.CheckHealth)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", &registry.ValidationError{Field: "name", Reason: "must not be empty"}, http.StatusBadRequest, "invalid_request"},
		{"not found", &registry.NotFoundError{ID: "x"}, http.StatusNotFound, "not_found"},
		{"storage", fmt.Errorf("%w: disk gone", registry.ErrStorageRead), http.StatusServiceUnavailable, "storage_unavailable"},
		{"other", errors.New("boom: secret detail"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := new(MockRegistry)
			reg.On("Get", mock.Anything, "x").Return(registry.Entry{}, tt.err)
			r := newTestRouter(NewHandler(Options{Registry: reg}))

			w := serve(r, http.MethodGet, "/apis/x", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "secret detail")
		})
	}
}

func TestListAPIs_StrictStorageFailure(t *testing.T) {
	reg := new(MockRegistry)
	reg.On("LoadAllStrict", mock.Anything).Return(nil, fmt.Errorf("%w: list: timeout", registry.ErrStorageRead))
	r := newTestRouter(NewHandler(Options{Registry: reg}))

	w := serve(r, http.MethodGet, "/apis?strict=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	reg.AssertExpectations(t)
}

func TestListAPIs_StrictRedacts(t *testing.T) {
	reg := new(MockRegistry)
	reg.On("LoadAllStrict", mock.Anything).Return([]registry.Entry{{ID: "a", Name: "A", Credential: "sk-verysecretvalue"}}, nil)
	r := newTestRouter(NewHandler(Options{Registry: reg}))

	w := serve(r, http.MethodGet, "/apis?strict=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-verysecretvalue")
	assert.Contains(t, w.Body.String(), "sk-v...ue")
}

func TestDeleteAPI_NotFound(t *testing.T) {
	reg := new(MockRegistry)
	reg.On("Remove", mock.Anything, "missing").Return(&registry.NotFoundError{ID: "missing"})
	r := newTestRouter(NewHandler(Options{Registry: reg}))

	w := serve(r, http.MethodDelete, "/apis/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartModelTest_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no provider", &modeltest.Error{Message: "no integration", Err: provider.ErrNoProvider}, http.StatusNotFound},
		{"unsupported", &modeltest.Error{Message: "not supported", Err: provider.ErrUnsupported}, http.StatusBadRequest},
		{"upstream", &modeltest.Error{Message: "provider returned status 500"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tester := new(MockTester)
			tester.On("StartTest", mock.Anything, "openai", "gpt", "").Return("", tt.err)
			tester.On("State").Return(modeltest.State{Status: modeltest.StatusError, Response: tt.err.Error()})
			r := newTestRouter(NewHandler(Options{Tester: tester}))

			w := serve(r, http.MethodPost, "/model-test", `{"provider":"openai","model":"gpt"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.err.Error())
		})
	}
}

func TestStartModelTest_Async(t *testing.T) {
	tester := new(MockTester)
	tester.On("StartTestAsync", "openai", "gpt", "hi").Return(uint64(7))
	tester.On("State").Return(modeltest.State{Status: modeltest.StatusLoading, Session: 7})
	r := newTestRouter(NewHandler(Options{Tester: tester}))

	w := serve(r, http.MethodPost, "/model-test", `{"provider":" openai ","model":"gpt","prompt":"hi","async":true}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"session":7`)
	tester.AssertExpectations(t)
}

func TestHealth_NotConfigured(t *testing.T) {
	r := newTestRouter(NewHandler(Options{}))

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodPost, "/health/check", "").Code)
}
