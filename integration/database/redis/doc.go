// Package redis creates go-redis clients from a connection URL.
//
// Connect parses redis:// and rediss:// URLs, then pings the server until it
// answers or the retry budget runs out. Healthcheck wraps PING for readiness
// probes. The returned client backs session storage and login throttling.
package redis
