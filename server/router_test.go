package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tankarena/server/domain"
)

func TestRoute(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pubsub := domain.NewSimplePubSub()
	registry := domain.NewRegistry(ctx, nil, pubsub, nil, domain.RegistryOptions{})
	h := Route(ctx, pubsub, registry, domain.EndpointOptions{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/rooms", http.StatusOK},
		{http.MethodPost, "/rooms", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}
