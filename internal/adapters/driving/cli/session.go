package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driving/browser"
	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/services"
)

// loginReturnTo is where the sign-in deep link says the user was heading.
const loginReturnTo = "/my_account"

var (
	loginTimeout   time.Duration
	loginNoBrowser bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Bike Index",
	Long: `Sign in to Bike Index in the browser.

A local server on the OAuth redirect address receives the authorization
code. Use --no-browser on a machine without a browser and open the printed
URL elsewhere on the same host.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored grant",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sign-in state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the browser")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "print the sign-in URL instead of opening it")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if session == nil {
		return errNotConfigured
	}

	redirect, err := sessionConfig.RedirectURL()
	if err != nil {
		return fmt.Errorf("invalid redirect uri: %w", err)
	}
	state, err := services.NewState()
	if err != nil {
		return err
	}

	surface := browser.NewServer(sessionConfig.Host, redirect)
	surface.SetSignInDestination(func(string) string {
		return session.AuthorizeURL(state)
	})
	chain := services.NewChain(
		services.NewAuthRedirectInterceptor(redirect, surface.Receiver(session), state),
		services.NewSignInPageInterceptor(sessionConfig.Host, services.DefaultSignInPath, surface),
	)
	if err := surface.Start(chain); err != nil {
		return err
	}
	defer func() { _ = surface.Stop() }()

	start, err := surface.URL(services.DefaultSignInPath, url.Values{"return_to": {loginReturnTo}})
	if err != nil {
		return err
	}

	if loginNoBrowser {
		cmd.Printf("Open this URL to sign in:\n  %s\n", start)
	} else {
		cmd.Println("Opening the browser to sign in...")
		if err := openURL(start); err != nil {
			cmd.Printf("Could not open a browser. Open this URL instead:\n  %s\n", start)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()
	if err := session.WaitAuthenticated(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("timed out waiting for the browser")
		}
		return userError("sign-in failed", err)
	}

	grant := session.Grant()
	cmd.Println(successStyle.Render("Signed in to " + sessionConfig.Host.Host))
	if grant != nil {
		cmd.Println(field("Scopes", domain.JoinScopes(grant.Scopes, ", ")))
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if session == nil {
		return errNotConfigured
	}
	if err := session.SignOut(cmd.Context()); err != nil {
		return fmt.Errorf("failed to forget grant: %w", err)
	}
	cmd.Println("Signed out.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if session == nil || nowClock == nil {
		return errNotConfigured
	}

	cmd.Println(titleStyle.Render("Bike Index"))
	cmd.Println(field("Host", sessionConfig.Host.String()))

	grant := session.Grant()
	now := nowClock.Now()
	switch {
	case grant == nil:
		cmd.Println(field("Session", warningStyle.Render("signed out")))
	case grant.IsValid(now):
		cmd.Println(field("Session", successStyle.Render(session.State().String())))
		cmd.Println(field("Expires", grant.Expiration().Local().Format(time.RFC1123)+
			mutedStyle.Render(" (in "+grant.Expiration().Sub(now).Round(time.Second).String()+")")))
		cmd.Println(field("Scopes", domain.JoinScopes(grant.Scopes, ", ")))
	case grant.RefreshToken != "":
		cmd.Println(field("Session", warningStyle.Render("expired, refreshes on next use")))
	default:
		cmd.Println(field("Session", warningStyle.Render("expired")))
	}

	if uploadStore != nil {
		pending, err := uploadStore.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list pending uploads: %w", err)
		}
		cmd.Println(field("Uploads", fmt.Sprintf("%d pending", len(pending))))
	}
	return nil
}
