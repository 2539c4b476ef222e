package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	Ping(ctx context.Context) error
}

type Service struct {
	token    string
	store    UserStore
	gatherer prometheus.Gatherer
	now      func() time.Time
	log      *logrus.Entry
}

func NewService(token string, store UserStore, gatherer prometheus.Gatherer) *Service {
	return &Service{
		token:    token,
		store:    store,
		gatherer: gatherer,
		now:      time.Now,
		log:      logrus.WithField("component", "api"),
	}
}

// Echo builds the HTTP server with all routes registered.
func (s *Service) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("Request handled")
			return nil
		},
	}))

	e.GET("/healthz", s.HandleHealth())
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// Without a token the member list is not served at all.
	if s.token == "" {
		s.log.Warn("api_token is not set, /users is disabled")
		return e
	}

	users := e.Group("/users")
	users.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(s.token)) == 1, nil
		},
	}))
	users.GET("", s.HandleUsers())

	return e
}

func (s *Service) HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.store.Ping(c.Request().Context()); err != nil {
			s.log.Errorf("Health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

type userView struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Username        string            `json:"username,omitempty"`
	Status          models.UserStatus `json:"status"`
	JoinedAt        time.Time         `json:"joined_at"`
	TrialEndsAt     time.Time         `json:"trial_ends_at"`
	RemainingSecs   int64             `json:"remaining_seconds"`
	InPrimaryChat   bool              `json:"in_primary_chat"`
	InSecondaryChat bool              `json:"in_secondary_chat"`
}

func (s *Service) HandleUsers() echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := s.store.ListUsers(c.Request().Context())
		if err != nil {
			s.log.Errorf("Failed to list users: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
		}

		now := s.now()
		result := make([]userView, 0, len(users))
		for _, u := range users {
			var remaining int64
			if u.Status == models.UserStatusTrial && u.TrialEndsAt.After(now) {
				remaining = int64(u.TrialEndsAt.Sub(now) / time.Second)
			}
			result = append(result, userView{
				ID:              u.ID,
				Name:            u.Name,
				Username:        u.Username,
				Status:          u.Status,
				JoinedAt:        u.JoinedAt.UTC(),
				TrialEndsAt:     u.TrialEndsAt.UTC(),
				RemainingSecs:   remaining,
				InPrimaryChat:   u.InPrimaryChat,
				InSecondaryChat: u.InSecondaryChat,
			})
		}
		return c.JSON(http.StatusOK, result)
	}
}
