package control_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/momentics/hioload-gate/control"
)

func TestMetricsHandlerExposesGatewayCollectors(t *testing.T) {
	m := control.NewMetrics()
	m.ClientsAccepted.Inc()
	m.ClientsClosed.WithLabelValues("overflow").Inc()
	m.BytesForwarded.WithLabelValues(control.DirUpstream).Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	text := string(body)

	for _, want := range []string{
		"gate_clients_accepted_total 1",
		`gate_clients_closed_total{reason="overflow"} 1`,
		`gate_bytes_forwarded_total{direction="upstream"} 5`,
		"go_goroutines",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	a, b := control.NewMetrics(), control.NewMetrics()
	a.TurnTimeouts.Inc()
	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "gate_turn_timeouts_total" && f.GetMetric()[0].GetCounter().GetValue() != 0 {
			t.Error("counter leaked between registries")
		}
	}
}
