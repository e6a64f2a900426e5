// Package httpserver owns the HTTP server construction and drain policy.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// shutdownGrace bounds how long in-flight requests, open event streams
// included, get to finish once the process is asked to stop.
const shutdownGrace = 10 * time.Second

// New builds the server. WriteTimeout stays unset on purpose: the violation
// event stream holds its response open for the life of a session.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server within the grace period.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}
