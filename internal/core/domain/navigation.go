package domain

import "net/url"

// Navigation is a page load the web surface is about to perform.
type Navigation struct {
	// URL is the navigation target.
	URL *url.URL
	// UserInitiated is true for link taps and form posts,
	// false for redirects issued by the server.
	UserInitiated bool
}

// NavigationDecision is the outcome of consulting the interception chain.
type NavigationDecision int

const (
	// NavigationAllow lets the web surface load the target.
	NavigationAllow NavigationDecision = iota
	// NavigationCancel stops the load; a policy has acted instead.
	NavigationCancel
)

func (d NavigationDecision) String() string {
	if d == NavigationCancel {
		return "cancel"
	}
	return "allow"
}
