package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driving/browser"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bikeindex-cli/internal/core/services"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// SessionService is the lifecycle as the commands use it.
type SessionService interface {
	driving.Session
	services.CodeReceiver
}

// Waiter blocks until background work has finished.
type Waiter interface {
	Wait()
}

// Services holds the collaborators wired by main.
type Services struct {
	Config    domain.SessionConfig
	Session   SessionService
	Client    *bikeindex.Client
	Uploader  *bikeindex.BackgroundUploader
	Transfers Waiter
	Bikes     driven.BikeStore
	Uploads   driven.UploadStore
	Clock     driven.Clock
}

var (
	sessionConfig domain.SessionConfig
	session       SessionService
	apiClient     *bikeindex.Client
	uploader      *bikeindex.BackgroundUploader
	transfers     Waiter
	bikeStore     driven.BikeStore
	uploadStore   driven.UploadStore
	nowClock      driven.Clock

	// openURL opens the system browser. Replaced in tests.
	openURL = browser.OpenBrowser
)

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	sessionConfig = s.Config
	session = s.Session
	apiClient = s.Client
	uploader = s.Uploader
	transfers = s.Transfers
	bikeStore = s.Bikes
	uploadStore = s.Uploads
	nowClock = s.Clock
}

var (
	errNotConfigured = errors.New("bikeindex is not configured: set oauth.client_id in ~/.bikeindex/config.toml or BIKEINDEX_CLIENT_ID")
	errSignedOut     = errors.New("not signed in: run 'bikeindex login'")
)

// ensureSession refreshes a grant that is expired or due before a command
// calls the API, and arms proactive refresh for the rest of the run. The
// refresh runs in the foreground: a background one could rotate the
// refresh token and lose it when the command exits.
func ensureSession(ctx context.Context) error {
	if session == nil || apiClient == nil || nowClock == nil {
		return errNotConfigured
	}

	grant := session.Grant()
	if grant == nil {
		return errSignedOut
	}
	now := nowClock.Now()
	valid := grant.IsValid(now)
	due := services.RefreshDelay(grant, now, services.RefreshBuffer) == 0
	if valid && (!due || grant.RefreshToken == "") {
		session.Resume()
		return nil
	}
	if grant.RefreshToken == "" {
		return errSignedOut
	}

	if err := session.RefreshNow(ctx); err != nil {
		if valid {
			logger.With("cli").Warn().Err(err).Msg("refresh failed; using the current grant until it expires")
			return nil
		}
		return errors.Join(errSignedOut, err)
	}
	return nil
}

// progressSink receives upload progress while a command is waiting.
var (
	progressMu   sync.Mutex
	progressSink func(bikeindex.UploadProgress)
)

// ReportProgress forwards upload progress to the command waiting on it.
// main installs it with bikeindex.WithProgress.
func ReportProgress(p bikeindex.UploadProgress) {
	progressMu.Lock()
	sink := progressSink
	progressMu.Unlock()
	if sink != nil {
		sink(p)
	}
}

func setProgressSink(fn func(bikeindex.UploadProgress)) {
	progressMu.Lock()
	defer progressMu.Unlock()
	progressSink = fn
}

// userError renders err the way the server phrased it, when it did.
func userError(op string, err error) error {
	if domain.IsUnauthorized(err) {
		return errors.Join(errSignedOut, err)
	}
	var clientErr *domain.ClientError
	if errors.As(err, &clientErr) && clientErr.Message() != "" {
		return fmt.Errorf("%s: %s", op, clientErr.Message())
	}
	return fmt.Errorf("%s: %w", op, err)
}
