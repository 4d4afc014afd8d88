package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/metrics"
)

// counterValue sums the samples of name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

type clock interface{ Now() int }

type fixedClock struct{ n int }

func (c *fixedClock) Now() int { return c.n }

type missing interface{ Missing() }

func TestCollector_CountsResolutions(t *testing.T) {
	m := metrics.NewCollector()
	c := container.New(container.WithObserver(m))
	if err := container.RegisterSingleton[clock](c, func() *fixedClock { return &fixedClock{n: 1} }); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if _, err := container.Resolve[clock](c); err != nil {
			t.Fatal(err)
		}
	}

	service := container.KeyOf[clock]().String()
	if got := counterValue(t, m.Registry(), "container_resolutions_total", map[string]string{"service": service, "lifetime": "singleton", "cached": "false"}); got != 1 {
		t.Errorf("built: got %v want 1", got)
	}
	if got := counterValue(t, m.Registry(), "container_resolutions_total", map[string]string{"service": service, "lifetime": "singleton", "cached": "true"}); got != 2 {
		t.Errorf("cached: got %v want 2", got)
	}
}

func TestCollector_CountsFailures(t *testing.T) {
	m := metrics.NewCollector()
	c := container.New(container.WithObserver(m))

	_, _ = container.Resolve[missing](c)

	service := container.KeyOf[missing]().String()
	if got := counterValue(t, m.Registry(), "container_resolution_errors_total", map[string]string{"service": service, "reason": "unregistered"}); got != 1 {
		t.Errorf("failures: got %v want 1", got)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&container.UnregisteredServiceError{Key: container.KeyOf[clock]()}, "unregistered"},
		{&container.CircularDependencyError{}, "circular"},
		{&container.ConstructionError{Cause: errors.New("x")}, "construction"},
		{errors.New("x"), "other"},
	}
	for _, tt := range tests {
		if got := metrics.Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v): got %q want %q", tt.err, got, tt.want)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	m := metrics.NewCollector()
	c := container.New(container.WithObserver(m))
	_ = container.RegisterInstance[clock](c, &fixedClock{})
	_, _ = container.Resolve[clock](c)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"container_resolutions_total", "container_construction_duration_seconds", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output should contain %s", name)
		}
	}
}
