package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, params types.RegisterParams) (*types.IssuedCredential, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IssuedCredential), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*types.IssuedCredential, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IssuedCredential), args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, currentUsername string, params types.ProfileUpdateParams) (*types.IssuedCredential, error) {
	args := m.Called(ctx, currentUsername, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IssuedCredential), args.Error(1)
}

func (m *MockAuthService) DeleteAccount(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockAuthService) Validate(token string) bool {
	return m.Called(token).Bool(0)
}

func (m *MockAuthService) SubjectOf(token string) (string, bool) {
	args := m.Called(token)
	return args.String(0), args.Bool(1)
}

func (m *MockAuthService) RoleOf(token string) (types.Role, bool) {
	args := m.Called(token)
	return args.Get(0).(types.Role), args.Bool(1)
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestRegisterHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())

		svc.On("Register", mock.Anything, types.RegisterParams{Username: "ash", Password: "pikachu", Email: "ash@x.io"}).
			Return(&types.IssuedCredential{Token: "tok", Username: "ash", Role: types.RoleUser}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			jsonBody(t, map[string]string{"username": "ash", "password": "pikachu", "email": "ash@x.io"}))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var cred types.IssuedCredential
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cred))
		assert.Equal(t, "tok", cred.Token)
		svc.AssertExpectations(t)
	})

	t.Run("conflict", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, api.ErrDuplicateEmail).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			jsonBody(t, map[string]string{"username": "ash", "password": "pikachu", "email": "ash@x.io"}))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields never reach the service", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", jsonBody(t, map[string]string{"username": "ash"}))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(`{"username":`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())
		svc.On("Login", mock.Anything, "ash", "pikachu").
			Return(&types.IssuedCredential{Token: "tok", Username: "ash"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			jsonBody(t, map[string]string{"username": "ash", "password": "pikachu"}))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		h := NewAuthHandler(svc, slog.Default())
		svc.On("Login", mock.Anything, "ash", "nope").Return(nil, api.ErrInvalidCredentials).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			jsonBody(t, map[string]string{"username": "ash", "password": "nope"}))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, api.ErrInvalidCredentials.Error(), body["error"])
	})
}

func TestValidateHandler(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, slog.Default())
	svc.On("Validate", "good").Return(true)
	svc.On("SubjectOf", "good").Return("ash", true)
	svc.On("RoleOf", "good").Return(types.RoleUser, true)
	svc.On("Validate", "bad").Return(false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.Validate(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ValidateResponse{Valid: true, Username: "ash", Role: "USER"}, resp)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	h.Validate(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate", nil)
	rec = httptest.NewRecorder()
	h.Validate(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfileHandler(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, slog.Default())
	bio := "Pallet Town"
	svc.On("UpdateProfile", mock.Anything, "ash", types.ProfileUpdateParams{Bio: &bio}).
		Return(&types.IssuedCredential{Token: "new", Username: "ash", Bio: &bio}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/profile", jsonBody(t, map[string]string{"bio": bio}))
	req = req.WithContext(WithIdentity(req.Context(), types.Identity{Subject: "ash", Role: types.RoleUser}))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/auth/profile", jsonBody(t, map[string]string{"bio": bio}))
	rec = httptest.NewRecorder()
	h.UpdateProfile(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccountHandler(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, slog.Default())
	svc.On("DeleteAccount", mock.Anything, "ash").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/account", nil)
	req = req.WithContext(WithIdentity(req.Context(), types.Identity{Subject: "ash", Role: types.RoleUser}))
	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}
