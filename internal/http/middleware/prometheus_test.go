package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPromApp(t *testing.T) (*fiber.App, *PrometheusMiddleware) {
	t.Helper()
	reg := prometheus.NewRegistry()
	mw, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(mw.Handler())
	return app, mw
}

func TestPrometheusMiddlewareCountsRequests(t *testing.T) {
	app, mw := newPromApp(t)

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Delete("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad request")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), testutil.ToFloat64(mw.requestCount.WithLabelValues("GET", "/test", "200")))

	_, err = app.Test(httptest.NewRequest("DELETE", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(mw.requestCount.WithLabelValues("DELETE", "/test", "200")))

	_, err = app.Test(httptest.NewRequest("GET", "/error", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(mw.requestCount.WithLabelValues("GET", "/error", "400")))
}

func TestPrometheusMiddlewareExcludesMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(mw.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	_, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			assert.Empty(t, mf.GetMetric(), "/metrics must not be counted")
		}
	}
}

func TestPrometheusMiddlewareUsesRoutePattern(t *testing.T) {
	app, mw := newPromApp(t)

	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/documents/123", nil))
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(mw.requestCount.WithLabelValues("GET", "/documents/:id", "200")))
	assert.NotZero(t, testutil.CollectAndCount(mw.requestDuration))
}
