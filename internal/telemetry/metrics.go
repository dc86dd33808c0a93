/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armory_media_api_requests_total",
		Help: "Total HTTP requests handled by the API.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes request latency in seconds.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "armory_media_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "armory_media_api_active_connections",
		Help: "Number of in-flight HTTP requests.",
	})

	// MediaIngestsTotal counts ingested uploads by kind and outcome.
	MediaIngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armory_media_ingests_total",
		Help: "Total media ingestion attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	// MediaBytesStreamed counts bytes served through the streaming endpoint.
	MediaBytesStreamed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "armory_media_streamed_bytes_total",
		Help: "Total bytes served by the media streaming endpoint.",
	})
)

// Handler exposes the prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
