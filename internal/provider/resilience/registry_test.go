package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/provider/resilience"
)

func registered(t *testing.T, registry *resilience.Registry, name string) *resilience.Client {
	t.Helper()
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func get(t *testing.T, c *resilience.Client, url string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := c.Do(req)
	if err == nil {
		resp.Body.Close()
	}
}

func TestRegistry_NewClientRegistersClosedBreaker(t *testing.T) {
	registry := resilience.NewRegistry()
	registered(t, registry, "openchargemap")

	health := registry.GetHealth("openchargemap")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestRegistry_TracksCallOutcomes(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	registry := resilience.NewRegistry()
	client := registered(t, registry, "openrouteservice")

	get(t, client, srv.URL)
	health := registry.GetHealth("openrouteservice")
	require.NotNil(t, health.LastSuccessAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.Equal(t, uint32(1), health.Counts.TotalSuccesses)

	fail.Store(true)
	get(t, client, srv.URL)
	health = registry.GetHealth("openrouteservice")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Bad Gateway")
	assert.Equal(t, uint32(1), health.Counts.ConsecutiveFailures)
}

func TestRegistry_TrippedBreakerIsUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	registry := resilience.NewRegistry()
	client := registered(t, registry, "openchargemap")

	for range 5 {
		get(t, client, srv.URL)
	}

	health := registry.GetHealth("openchargemap")
	assert.Equal(t, gobreaker.StateOpen, health.CircuitState)
	assert.Equal(t, resilience.StatusUnhealthy, health.Status())

	get(t, client, srv.URL)
	assert.Equal(t, resilience.ErrCircuitOpen.Error(), registry.GetHealth("openchargemap").LastError)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	registered(t, registry, "openchargemap")
	require.Equal(t, 1, registry.ProviderCount())

	registry.Unregister("openchargemap")

	assert.Zero(t, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("openchargemap"))
}

func TestRegistry_UnknownProviderIsIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.Empty(t, registry.GetProviderNames())
}

func TestRegistry_NamesAreSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	registered(t, registry, "openrouteservice")
	registered(t, registry, "openchargemap")

	assert.Equal(t, []string{"openchargemap", "openrouteservice"}, registry.GetProviderNames())
	all := registry.GetAllHealth()
	require.Len(t, all, 2)
	assert.Equal(t, "openchargemap", all[0].Name)
	assert.Equal(t, "openrouteservice", all[1].Name)
}

func TestProviderHealth_Status(t *testing.T) {
	tests := map[gobreaker.State]string{
		gobreaker.StateClosed:   resilience.StatusHealthy,
		gobreaker.StateHalfOpen: resilience.StatusDegraded,
		gobreaker.StateOpen:     resilience.StatusUnhealthy,
	}

	for state, want := range tests {
		t.Run(state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: state}
			assert.Equal(t, want, h.Status())
		})
	}
}
