package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/metrics"
)

func TestCollectorCountsEvents(t *testing.T) {
	c := metrics.NewCollector()
	ctx := context.Background()

	require.NoError(t, c.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, c.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, c.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure}))

	count, err := testutil.GatherAndCount(c.Registry(), "syr_auth_activity_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per event type")
}

func TestCollectorObservesSweeps(t *testing.T) {
	c := metrics.NewCollector()

	c.ObserveSweep(3, nil)
	c.ObserveSweep(0, nil)
	c.ObserveSweep(0, errors.New("db down"))

	app := fiber.New()
	app.Get("/metrics", c.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "syr_auth_sessions_swept_total 3")
	assert.Contains(t, string(body), "syr_auth_session_sweep_errors_total 1")
}
