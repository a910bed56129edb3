// Package bridge exposes the stream coordinator to a browser panel over a
// loopback websocket.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/iksnae/pagechat/internal"
)

const shutdownTimeout = 5 * time.Second

// Server serves the panel websocket and a health endpoint
type Server struct {
	echo     *echo.Echo
	addr     string
	coord    *internal.Coordinator
	defaults internal.EndpointConfig
	upgrader websocket.Upgrader
}

// NewServer creates a bridge listening on addr. defaults fill endpoint fields
// a panel request leaves empty. All connections share one coordinator, so a
// stream started by any panel replaces the one in flight.
func NewServer(addr string, client *http.Client, defaults internal.EndpointConfig) *Server {
	if addr == "" {
		addr = internal.DefaultBridgeAddr
	}

	s := &Server{
		addr:     addr,
		coord:    internal.NewCoordinator(client),
		defaults: defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return allowedOrigin(r.Header.Get("Origin")) },
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			internal.LogDebug("bridge: %s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/ws", s.handleWebsocket)
	s.echo = e
	return s
}

// Handler returns the bridge as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleWebsocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		internal.LogWarn("bridge: websocket upgrade failed: %v", err)
		return nil
	}

	internal.LogInfo("bridge: panel connected from %s", c.RealIP())
	newPanelConn(conn, s.coord, s.defaults).serve(c.Request().Context())
	internal.LogInfo("bridge: panel disconnected")
	return nil
}

// allowedOrigin accepts browser extensions, loopback pages and clients that send no origin
func allowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension", "safari-web-extension":
		return true
	case "http", "https":
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".localhost")
	default:
		return false
	}
}
