package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/quotation-engine/pkg/config"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	cases := map[string]struct {
		db, redis pinger
		want      int
	}{
		"all up":       {db: stubPinger{}, redis: stubPinger{}, want: http.StatusOK},
		"redis down":   {db: stubPinger{}, redis: stubPinger{err: errors.New("refused")}, want: http.StatusServiceUnavailable},
		"db not wired": {redis: stubPinger{}, want: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			HealthReady(cfg, testLogger(), tc.db, tc.redis)(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
			if env := resp.Header().Get("X-Quotation-Env"); env != "test" {
				t.Fatalf("unexpected env header %q", env)
			}
		})
	}
}
