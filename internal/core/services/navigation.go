package services

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// Ensure Chain implements the interface.
var _ driving.Navigator = (*Chain)(nil)

// NavigationPolicy is one link of the interception chain.
type NavigationPolicy interface {
	// Name identifies the policy in logs.
	Name() string

	// Claim reports whether the policy takes over nav. A policy that claims
	// has already acted; the web surface must not load the target.
	Claim(nav domain.Navigation) bool
}

// Chain consults policies in order. The first claim cancels the navigation;
// if nothing claims, the navigation is allowed.
type Chain struct {
	policies []NavigationPolicy
}

// NewChain creates a chain over policies, consulted in the given order.
func NewChain(policies ...NavigationPolicy) *Chain {
	return &Chain{policies: append([]NavigationPolicy(nil), policies...)}
}

// Decide runs the chain for nav.
func (c *Chain) Decide(nav domain.Navigation) domain.NavigationDecision {
	if nav.URL == nil {
		return domain.NavigationAllow
	}
	for _, p := range c.policies {
		if p.Claim(nav) {
			logger.With("navigation").Debug().
				Str("policy", p.Name()).
				Str("path", nav.URL.Path).
				Msg("navigation claimed")
			return domain.NavigationCancel
		}
	}
	return domain.NavigationAllow
}

// CodeReceiver accepts authorization codes captured from the redirect URI.
// It must not block.
type CodeReceiver interface {
	ReceiveAuthorizationCode(code string)
}

// AuthorizationErrorReceiver is told when the redirect URI reports a denied
// or failed authorization.
type AuthorizationErrorReceiver interface {
	ReceiveAuthorizationError(err error)
}

// ErrAuthorizationDenied is reported when the redirect carries an OAuth error.
var ErrAuthorizationDenied = errors.New("authorization denied")

// ErrStateMismatch is reported when the redirect state does not match.
var ErrStateMismatch = errors.New("oauth state mismatch")

// AuthRedirectInterceptor claims navigations to the OAuth redirect URI that
// carry an authorization code, and hands the code over.
type AuthRedirectInterceptor struct {
	redirect *url.URL
	receiver CodeReceiver
	errors   AuthorizationErrorReceiver
	state    string
}

// NewAuthRedirectInterceptor creates the interceptor for redirect.
// If state is non-empty, a redirect with a different state is claimed
// but its code is discarded.
func NewAuthRedirectInterceptor(redirect *url.URL, receiver CodeReceiver, state string) *AuthRedirectInterceptor {
	a := &AuthRedirectInterceptor{redirect: redirect, receiver: receiver, state: state}
	if er, ok := receiver.(AuthorizationErrorReceiver); ok {
		a.errors = er
	}
	return a
}

// Name identifies the policy.
func (a *AuthRedirectInterceptor) Name() string { return "auth-redirect" }

// Claim implements NavigationPolicy.
func (a *AuthRedirectInterceptor) Claim(nav domain.Navigation) bool {
	if !sameEndpoint(nav.URL, a.redirect) {
		return false
	}
	q := nav.URL.Query()

	code := q.Get("code")
	if code == "" {
		if oauthErr := q.Get("error"); oauthErr != "" && a.errors != nil {
			a.errors.ReceiveAuthorizationError(fmt.Errorf("%w: %s", ErrAuthorizationDenied, describeOAuthError(q)))
			return true
		}
		return false
	}

	if a.state != "" && !stateMatches(a.state, q.Get("state")) {
		logger.With("navigation").Warn().Msg("discarding authorization code with unexpected state")
		if a.errors != nil {
			a.errors.ReceiveAuthorizationError(ErrStateMismatch)
		}
		return true
	}

	a.receiver.ReceiveAuthorizationCode(code)
	return true
}

func describeOAuthError(q url.Values) string {
	if desc := q.Get("error_description"); desc != "" {
		return q.Get("error") + ": " + desc
	}
	return q.Get("error")
}

// SignInRouter opens the dedicated sign-in flow.
type SignInRouter interface {
	RouteToSignIn(returnTo string)
}

// DefaultSignInPath is the host's generic sign-in page.
const DefaultSignInPath = "/session/new"

// SignInPageInterceptor claims deep-linked entries into the generic sign-in
// page, those carrying a return_to parameter, and reroutes them to the
// dedicated sign-in flow. A plain visit to the sign-in page is not claimed.
type SignInPageInterceptor struct {
	host   *url.URL
	path   string
	router SignInRouter
}

// NewSignInPageInterceptor creates the interceptor for the sign-in page at
// path on host. An empty path uses DefaultSignInPath.
func NewSignInPageInterceptor(host *url.URL, path string, router SignInRouter) *SignInPageInterceptor {
	if path == "" {
		path = DefaultSignInPath
	}
	return &SignInPageInterceptor{host: host, path: path, router: router}
}

// Name identifies the policy.
func (s *SignInPageInterceptor) Name() string { return "sign-in-page" }

// Claim implements NavigationPolicy.
func (s *SignInPageInterceptor) Claim(nav domain.Navigation) bool {
	if !strings.EqualFold(nav.URL.Hostname(), s.host.Hostname()) {
		return false
	}
	if trimSlash(nav.URL.Path) != trimSlash(s.path) {
		return false
	}
	q := nav.URL.Query()
	if !q.Has("return_to") {
		return false
	}

	s.router.RouteToSignIn(q.Get("return_to"))
	return true
}

// sameEndpoint compares scheme, host and path, ignoring query and fragment.
func sameEndpoint(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Host, b.Host) &&
		trimSlash(a.Path) == trimSlash(b.Path)
}

func trimSlash(p string) string {
	return "/" + strings.Trim(p, "/")
}
