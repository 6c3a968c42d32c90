// Package profiling runs the optional heap-profiling sidecar enabled with
// --pprof-addr. It serves the runtime heap profile in pprof format at
// /debug/pprof/heap and nothing else.
package profiling

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

// HeapPath is the only route the sidecar serves.
const HeapPath = "/debug/pprof/heap"

// Handler serves the heap profile at HeapPath.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(HeapPath, pprof.Handler("heap"))
	return mux
}

// Server is a running profiling sidecar.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on addr and serves Handler in the background until Shutdown.
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("pprof listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("heap profiling server stopped")
		}
	}()
	logrus.WithField("addr", s.Addr()).Info("heap profiling available at http://" + s.Addr() + HeapPath)
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the sidecar.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
