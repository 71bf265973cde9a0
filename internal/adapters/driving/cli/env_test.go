package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/clock"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/transfer"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/services"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a fully wired CLI against an httptest API.
type testEnv struct {
	mux       *http.ServeMux
	api       *httptest.Server
	clock     *clock.Manual
	secure    *memory.SecureStore
	tokens    *services.TokenStore
	session   *services.LifecycleManager
	bikes     *memory.BikeStore
	uploads   *memory.UploadStore
	transport *transfer.Transport
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		mux:     http.NewServeMux(),
		clock:   clock.NewManual(epoch),
		secure:  memory.NewSecureStore(),
		bikes:   memory.NewBikeStore(),
		uploads: memory.NewUploadStore(),
	}
	env.api = httptest.NewServer(env.mux)
	t.Cleanup(env.api.Close)

	host, err := url.Parse(env.api.URL + "/")
	require.NoError(t, err)
	cfg := domain.SessionConfig{
		Host:         host,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1/oauth/callback",
		Scopes:       domain.AllScopes(),
	}

	env.tokens, err = services.NewTokenStore(env.secure, env.clock)
	require.NoError(t, err)
	client := bikeindex.NewClient(cfg, env.tokens, bikeindex.WithClock(env.clock))
	env.session = services.NewLifecycleManager(cfg, env.tokens, client, env.clock)
	env.transport = transfer.New()
	up := bikeindex.NewBackgroundUploader(client, env.transport, env.uploads, env.bikes,
		bikeindex.WithTempDir(t.TempDir()),
		bikeindex.WithProgress(ReportProgress),
	)

	SetServices(&Services{
		Config:    cfg,
		Session:   env.session,
		Client:    client,
		Uploader:  up,
		Transfers: env.transport,
		Bikes:     env.bikes,
		Uploads:   env.uploads,
		Clock:     env.clock,
	})
	t.Cleanup(func() { SetServices(&Services{}) })
	return env
}

// signIn stores a grant valid at epoch for an hour.
func (e *testEnv) signIn(t *testing.T, access string) {
	t.Helper()
	require.NoError(t, e.tokens.Store(&domain.TokenGrant{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    time.Hour,
		RefreshToken: "refresh-" + access,
		Scopes:       domain.AllScopes(),
		CreatedAt:    epoch,
	}))
}

// handle registers a handler that also checks the bearer token.
func (e *testEnv) handle(t *testing.T, pattern, token, body string, status int) {
	t.Helper()
	e.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.URL.Query().Get("access_token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"OAuth error: access token is invalid"}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// resetFlags restores flag variables shared across Execute calls.
func resetFlags() {
	resetCommandFlags(rootCmd)
	verbose = false
	bikesJSON = false
	bikesOffline = false
	bikeForm = bikeindex.BikeForm{}
	searchJSON = false
	uploadWait = true
	uploadTimeout = 10 * time.Second
	loginNoBrowser = false
	loginTimeout = 10 * time.Second
}

// resetCommandFlags puts every flag back to its default and clears Changed,
// which required-flag checks read.
func resetCommandFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetCommandFlags(c)
	}
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
