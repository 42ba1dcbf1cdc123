package main

const (
	// PathMetrics is the path for the prometheus metrics endpoint.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check endpoint.
	PathHealth = "/health"
)
