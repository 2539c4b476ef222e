package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/metrics"
	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, token string) (*Service, *prometheus.Registry) {
	t.Helper()

	store := testutil.NewTestStorage(t)
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []models.UserStatus{models.UserStatusTrial, models.UserStatusApproved} {
		_, _, err := store.CreateUserIfAbsent(context.Background(), &models.User{
			ID:              int64(10 + i),
			Name:            "User",
			JoinedAt:        joined,
			TrialEndsAt:     joined.Add(192 * time.Hour),
			Status:          status,
			InPrimaryChat:   true,
			InSecondaryChat: true,
		})
		require.NoError(t, err)
	}

	reg := prometheus.NewRegistry()
	s := NewService(token, store, reg)
	s.now = func() time.Time { return now }
	return s, reg
}

func do(t *testing.T, s *Service, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestService_Health(t *testing.T) {
	s, _ := newTestService(t, "")

	rec := do(t, s, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type brokenStore struct{}

func (brokenStore) ListUsers(context.Context) ([]*models.User, error) { return nil, errors.New("down") }
func (brokenStore) Ping(context.Context) error                        { return errors.New("down") }

func TestService_Unhealthy(t *testing.T) {
	s := NewService("secret", brokenStore{}, prometheus.NewRegistry())

	require.Equal(t, http.StatusServiceUnavailable, do(t, s, "/healthz", "").Code)
	require.Equal(t, http.StatusInternalServerError, do(t, s, "/users", "Bearer secret").Code)
}

func TestService_Users(t *testing.T) {
	s, _ := newTestService(t, "secret")

	rec := do(t, s, "/users", "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []userView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)

	byID := map[int64]userView{}
	for _, u := range users {
		byID[u.ID] = u
	}
	assert.Equal(t, models.UserStatusTrial, byID[10].Status)
	assert.Equal(t, int64(4*24*3600), byID[10].RemainingSecs)
	assert.Equal(t, models.UserStatusApproved, byID[11].Status)
	assert.Zero(t, byID[11].RemainingSecs)
}

func TestService_UsersAuth(t *testing.T) {
	s, _ := newTestService(t, "secret")

	assert.NotEqual(t, http.StatusOK, do(t, s, "/users", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, "/users", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, s, "/users", "Bearer secret").Code)

	// Health and metrics stay open.
	assert.Equal(t, http.StatusOK, do(t, s, "/healthz", "").Code)
}

func TestService_UsersDisabledWithoutToken(t *testing.T) {
	s, _ := newTestService(t, "")

	rec := do(t, s, "/users", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), `"id"`)

	assert.Equal(t, http.StatusNotFound, do(t, s, "/users", "Bearer anything").Code)
	assert.Equal(t, http.StatusOK, do(t, s, "/healthz", "").Code)
}

func TestService_Metrics(t *testing.T) {
	s, reg := newTestService(t, "")
	m := metrics.New(reg)
	m.JobRun("reconcile")

	rec := do(t, s, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `job="reconcile"`)
}
