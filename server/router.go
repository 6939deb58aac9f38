package server

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tankarena/server/domain"
	"tankarena/server/handler"
)

// Route はHTTPのルーティングを組み立てます。shutdownがキャンセルされるとWebSocket接続を閉じます。
func Route(shutdown context.Context, pubsub domain.PubSub, registry *domain.Registry, opts domain.EndpointOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", handler.NewAcceptHandler(shutdown, pubsub, registry, opts))
	mux.Handle("GET /healthz", handler.NewHealthHandler())
	mux.Handle("GET /rooms", handler.NewRoomsHandler(registry))
	return otelhttp.NewHandler(mux, "tankarena",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
