package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// Ensure LifecycleManager implements the interface.
var _ driving.Session = (*LifecycleManager)(nil)

const (
	// RefreshBuffer is how long before expiry the grant is refreshed.
	RefreshBuffer = 3 * time.Minute

	// MinRefreshInterval is the shortest delay armed after a refresh. A
	// refreshed grant that is already inside RefreshBuffer would otherwise
	// re-arm at zero and refresh in a loop.
	MinRefreshInterval = 30 * time.Second

	// refreshTimeout bounds a timer-driven refresh exchange.
	refreshTimeout = 30 * time.Second
)

// exchangeKind names the grant exchange in flight.
type exchangeKind int

const (
	exchangeNone exchangeKind = iota
	exchangeCode
	exchangeRefresh
)

// RefreshDelay returns how long to wait before refreshing grant.
// The result is never negative: an overdue grant refreshes immediately.
func RefreshDelay(grant *domain.TokenGrant, now time.Time, buffer time.Duration) time.Duration {
	delay := grant.Expiration().Sub(now) - buffer
	if delay < 0 {
		return 0
	}
	return delay
}

// LifecycleManager drives the authorization-code exchange and proactive refresh.
//
// At most one grant exchange runs at a time. A refresh timer is armed after
// every successful exchange; arming supersedes any previous timer.
type LifecycleManager struct {
	tokens    *TokenStore
	exchanger driven.GrantExchanger
	scheduler driven.Scheduler
	oauth     *oauth2.Config

	mu         sync.Mutex
	state      domain.SessionState
	timer      driven.Timer
	armed      uint64 // identifies the live timer
	generation uint64 // bumped on sign-out
	exchanging exchangeKind
	settled    chan struct{} // closed when the running exchange finishes

	results chan error
}

// NewLifecycleManager creates a lifecycle manager over the token store.
func NewLifecycleManager(
	cfg domain.SessionConfig,
	tokens *TokenStore,
	exchanger driven.GrantExchanger,
	scheduler driven.Scheduler,
) *LifecycleManager {
	scopes := make([]string, len(cfg.Scopes))
	for i, s := range cfg.Scopes {
		scopes[i] = string(s)
	}

	m := &LifecycleManager{
		tokens:    tokens,
		exchanger: exchanger,
		scheduler: scheduler,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Host.JoinPath("oauth", "authorize").String(),
				TokenURL:  cfg.Host.JoinPath("oauth", "token").String(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		results: make(chan error, 1),
	}
	if tokens.IsValid() {
		m.state = domain.StateAuthenticated
	}
	return m
}

// AuthorizeURL returns the browser URL that starts the authorization-code flow.
func (m *LifecycleManager) AuthorizeURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// Resume arms refresh for a grant loaded from the secure store.
// An expired grant with a refresh token is refreshed immediately.
func (m *LifecycleManager) Resume() {
	grant := m.tokens.Grant()
	if grant == nil || grant.RefreshToken == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.arm(grant, 0)
}

// Authenticate exchanges an authorization code for a grant.
func (m *LifecycleManager) Authenticate(ctx context.Context, code string) error {
	return m.authenticate(ctx, code, false)
}

// authenticate runs the code exchange. With waitRefresh set, a refresh in
// flight is waited out instead of refusing the code; a code exchange in
// flight is always refused.
func (m *LifecycleManager) authenticate(ctx context.Context, code string, waitRefresh bool) error {
	if code == "" {
		return fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	for m.exchanging != exchangeNone {
		if !waitRefresh || m.exchanging == exchangeCode {
			m.mu.Unlock()
			return domain.ErrExchangeInProgress
		}
		settled := m.settled
		m.mu.Unlock()
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
	}
	m.beginExchange(exchangeCode)
	m.state = domain.StateAuthenticating
	gen := m.generation
	m.mu.Unlock()

	log := logger.With("lifecycle")
	log.Debug().Msg("exchanging authorization code")

	grant, err := m.exchanger.ExchangeCode(ctx, code)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.endExchange()

	if gen != m.generation {
		log.Info().Msg("discarding grant: signed out during exchange")
		return domain.ErrNotAuthenticated
	}
	if err != nil {
		m.state = m.settledState()
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := m.tokens.Store(grant); err != nil {
		log.Warn().Err(err).Msg("grant kept in memory only")
	}
	m.state = domain.StateAuthenticated
	m.arm(grant, 0)

	log.Info().
		Time("expiresAt", grant.Expiration()).
		Str("scopes", domain.JoinScopes(grant.Scopes, " ")).
		Msg("authenticated")
	return nil
}

// ReceiveAuthorizationCode starts an exchange without blocking the caller.
// The outcome is reported through WaitAuthenticated. A code arriving while
// a refresh runs is exchanged once the refresh settles; a second code
// arriving while a code exchange runs is dropped, and the running exchange
// reports instead.
func (m *LifecycleManager) ReceiveAuthorizationCode(code string) {
	go func() {
		err := m.authenticate(context.Background(), code, true)
		if errors.Is(err, domain.ErrExchangeInProgress) {
			logger.With("lifecycle").Debug().Msg("dropping duplicate authorization code")
			return
		}
		m.publish(err)
	}()
}

// ReceiveAuthorizationError reports a failed authorization to WaitAuthenticated.
func (m *LifecycleManager) ReceiveAuthorizationError(err error) {
	m.publish(err)
}

func (m *LifecycleManager) publish(err error) {
	select {
	case m.results <- err:
	default:
		logger.Warn("authentication result dropped: no waiter")
	}
}

// WaitAuthenticated blocks until a code passed to ReceiveAuthorizationCode
// has been exchanged.
func (m *LifecycleManager) WaitAuthenticated(ctx context.Context) error {
	select {
	case err := <-m.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignOut clears the grant, cancels any armed refresh and calls the
// server logout endpoint. Local state is cleared even if logout fails.
func (m *LifecycleManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	m.stopTimer()
	clearErr := m.tokens.Clear()
	m.state = domain.StateUnauthenticated
	m.mu.Unlock()

	if err := m.exchanger.RevokeSession(ctx); err != nil {
		logger.With("lifecycle").Warn().Err(err).Msg("server logout failed")
	}
	return clearErr
}

// State returns the current lifecycle state.
func (m *LifecycleManager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Grant returns a snapshot of the current grant, or nil.
func (m *LifecycleManager) Grant() *domain.TokenGrant {
	return m.tokens.Grant()
}

// arm schedules the next refresh for grant, no sooner than floor.
// Caller must hold mu.
func (m *LifecycleManager) arm(grant *domain.TokenGrant, floor time.Duration) {
	m.stopTimer()

	delay := RefreshDelay(grant, m.scheduler.Now(), RefreshBuffer)
	if delay < floor {
		logger.With("lifecycle").Warn().
			Time("expiresAt", grant.Expiration()).
			Dur("delay", floor).
			Msg("refreshed grant is already due; delaying next refresh")
		delay = floor
	}
	m.armed++
	id, gen := m.armed, m.generation
	m.timer = m.scheduler.AfterFunc(delay, func() {
		m.refresh(id, gen)
	})

	logger.With("lifecycle").Debug().Dur("delay", delay).Msg("refresh armed")
}

// stopTimer cancels the armed timer. Caller must hold mu.
func (m *LifecycleManager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// refresh runs when timer id fires.
func (m *LifecycleManager) refresh(id, gen uint64) {
	m.mu.Lock()
	if id != m.armed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	current, err := m.beginRefresh()
	m.mu.Unlock()
	if err != nil {
		if !errors.Is(err, domain.ErrExchangeInProgress) {
			logger.With("lifecycle").Warn().Err(err).Msg("cannot refresh grant")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	_ = m.completeRefresh(ctx, gen, current)
}

// RefreshNow exchanges the refresh token without waiting for the timer.
// The next refresh is armed from the new grant.
func (m *LifecycleManager) RefreshNow(ctx context.Context) error {
	m.mu.Lock()
	gen := m.generation
	current, err := m.beginRefresh()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.completeRefresh(ctx, gen, current)
}

// beginRefresh marks a refresh exchange as running and returns the grant
// being refreshed. Caller must hold mu.
func (m *LifecycleManager) beginRefresh() (*domain.TokenGrant, error) {
	if m.exchanging != exchangeNone {
		return nil, domain.ErrExchangeInProgress
	}
	current := m.tokens.Grant()
	if current == nil || current.RefreshToken == "" {
		m.state = domain.StateUnauthenticated
		return nil, domain.ErrNoRefreshToken
	}
	m.beginExchange(exchangeRefresh)
	m.state = domain.StateRefreshing
	return current, nil
}

// completeRefresh runs the exchange started by beginRefresh.
func (m *LifecycleManager) completeRefresh(ctx context.Context, gen uint64, current *domain.TokenGrant) error {
	log := logger.With("lifecycle")

	grant, err := m.exchanger.RefreshGrant(ctx, current.RefreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.endExchange()

	if gen != m.generation {
		log.Info().Msg("discarding refreshed grant: signed out during refresh")
		return domain.ErrNotAuthenticated
	}
	if err != nil {
		// The stale grant stays in place; IsValid turns false and the user re-authenticates.
		m.state = domain.StateUnauthenticated
		log.Error().Err(err).Msg("grant refresh failed")
		return fmt.Errorf("refresh grant: %w", err)
	}

	if grant.RefreshToken == "" {
		grant.RefreshToken = current.RefreshToken
	}
	if err := m.tokens.Store(grant); err != nil {
		log.Warn().Err(err).Msg("refreshed grant kept in memory only")
	}
	m.state = domain.StateAuthenticated
	m.arm(grant, MinRefreshInterval)

	log.Info().Time("expiresAt", grant.Expiration()).Msg("grant refreshed")
	return nil
}

// beginExchange marks an exchange as running. Caller must hold mu.
func (m *LifecycleManager) beginExchange(kind exchangeKind) {
	m.exchanging = kind
	m.settled = make(chan struct{})
}

// endExchange marks the running exchange as finished. Caller must hold mu.
func (m *LifecycleManager) endExchange() {
	m.exchanging = exchangeNone
	close(m.settled)
}

// settledState is the state after a failed exchange. Caller must hold mu.
func (m *LifecycleManager) settledState() domain.SessionState {
	if m.tokens.IsValid() {
		return domain.StateAuthenticated
	}
	return domain.StateUnauthenticated
}
