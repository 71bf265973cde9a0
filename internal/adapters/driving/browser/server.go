// Package browser is the CLI's web surface: a loopback server that stands
// between the system browser and the Bike Index host.
//
// Every page load that reaches the loopback address is turned into a
// domain.Navigation and put to a driving.Navigator. A cancelled navigation
// renders a local page, or follows a reroute a policy requested. An allowed
// navigation is redirected to the equivalent URL on the host.
package browser

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// ErrNotStarted indicates the server has no listener yet.
var ErrNotStarted = errors.New("browser server not started")

// Server is the loopback web surface.
type Server struct {
	host     *url.URL
	redirect *url.URL
	signIn   func(returnTo string) string

	decideMu sync.Mutex // one navigation decision at a time
	reroute  string
	failure  error

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a server for host. redirect is the registered OAuth
// redirect URI; its host and port are where the server listens.
func NewServer(host, redirect *url.URL) *Server {
	return &Server{host: host, redirect: redirect}
}

// SetSignInDestination sets where RouteToSignIn sends the browser.
// fn receives the page the user was heading to.
func (s *Server) SetSignInDestination(fn func(returnTo string) string) {
	s.decideMu.Lock()
	defer s.decideMu.Unlock()
	s.signIn = fn
}

// RouteToSignIn reroutes the navigation being decided to the sign-in
// destination. It is called by a policy from inside Decide.
func (s *Server) RouteToSignIn(returnTo string) {
	if s.signIn == nil {
		return
	}
	s.reroute = s.signIn(returnTo)
}

type codeReceiver interface {
	ReceiveAuthorizationCode(code string)
}

type errorReceiver interface {
	ReceiveAuthorizationError(err error)
}

// Receiver relays what the redirect interceptor captures to the session and
// marks the navigation being decided as failed when authorization fails.
type Receiver struct {
	server *Server
	next   codeReceiver
}

// Receiver wraps next for use as the interceptor's code receiver.
func (s *Server) Receiver(next codeReceiver) *Receiver {
	return &Receiver{server: s, next: next}
}

// ReceiveAuthorizationCode passes code on.
func (r *Receiver) ReceiveAuthorizationCode(code string) {
	r.next.ReceiveAuthorizationCode(code)
}

// ReceiveAuthorizationError passes err on and renders the failure page for
// the current navigation. It is called by a policy from inside Decide.
func (r *Receiver) ReceiveAuthorizationError(err error) {
	r.server.failure = err
	if er, ok := r.next.(errorReceiver); ok {
		er.ReceiveAuthorizationError(err)
	}
}

// Handler returns the router that puts every request to nav.
func (s *Server) Handler(nav driving.Navigator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
		s.handleNavigation(w, req, nav)
	})
	return r
}

// Start listens on the redirect URI's address and serves in the background.
func (s *Server) Start(nav driving.Navigator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := listenAddr(s.redirect)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(nav),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.With("browser").Error().Err(err).Msg("loopback server stopped")
		}
	}()

	logger.With("browser").Debug().Str("addr", listener.Addr().String()).Msg("loopback server listening")
	return nil
}

// Stop shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// URL returns the loopback address of path on the host, e.g. the URL to open
// so that the browser's first load passes through the navigator.
func (s *Server) URL(path string, query url.Values) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return "", ErrNotStarted
	}

	u := url.URL{
		Scheme:   "http",
		Host:     s.redirect.Host,
		Path:     path,
		RawQuery: query.Encode(),
	}
	if s.redirect.Port() == "" {
		u.Host = s.listener.Addr().String()
	}
	return u.String(), nil
}

func (s *Server) handleNavigation(w http.ResponseWriter, req *http.Request, nav driving.Navigator) {
	n := domain.Navigation{
		URL:           s.target(req),
		UserInitiated: req.Header.Get("Sec-Fetch-User") == "?1",
	}

	s.decideMu.Lock()
	s.reroute = ""
	s.failure = nil
	decision := nav.Decide(n)
	reroute, failure := s.reroute, s.failure
	s.decideMu.Unlock()

	logger.With("browser").Debug().
		Str("path", n.URL.Path).
		Bool("userInitiated", n.UserInitiated).
		Str("decision", decision.String()).
		Msg("navigation")

	switch {
	case decision == domain.NavigationCancel && reroute != "":
		http.Redirect(w, req, reroute, http.StatusFound)
	case decision == domain.NavigationCancel && failure != nil:
		logger.With("browser").Debug().Err(failure).Msg("authorization failed")
		writePage(w, http.StatusBadRequest, "Sign-in did not complete", "Return to the terminal and try again.")
	case decision == domain.NavigationCancel:
		writePage(w, http.StatusOK, "Signed in to Bike Index", "You can close this window and return to the terminal.")
	case s.isRedirect(req):
		// Nothing claimed the redirect URI: no code and no error.
		writePage(w, http.StatusBadRequest, "Nothing to do here", "The authorization response carried no code.")
	default:
		http.Redirect(w, req, n.URL.String(), http.StatusFound)
	}
}

// target maps a loopback request onto the URL the browser asked for. Loads
// of the redirect path keep the redirect URI; anything else is the same
// path on the host.
func (s *Server) target(req *http.Request) *url.URL {
	if s.isRedirect(req) {
		u := *s.redirect
		u.RawQuery = req.URL.RawQuery
		return &u
	}
	u := s.host.JoinPath(req.URL.Path)
	u.RawQuery = req.URL.RawQuery
	return u
}

func (s *Server) isRedirect(req *http.Request) bool {
	return strings.Trim(req.URL.Path, "/") == strings.Trim(s.redirect.Path, "/")
}

func listenAddr(redirect *url.URL) string {
	host := redirect.Hostname()
	if host == "" || strings.EqualFold(host, "localhost") {
		host = "127.0.0.1"
	}
	port := redirect.Port()
	if port == "" {
		port = "0"
	}
	return net.JoinHostPort(host, port)
}

func writePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, pageHTML(title, message))
}

//nolint:misspell // CSS properties use American spelling (center, color)
func pageHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>Bike Index</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #F5F7FA;
        }
        .container {
            text-align: center;
            background: white;
            padding: 40px 60px;
            border-radius: 16px;
            border: 1px solid #D5DAE1;
        }
        h1 { color: #3498DB; margin-bottom: 10px; }
        p { color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
