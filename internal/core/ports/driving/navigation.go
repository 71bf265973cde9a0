package driving

import "github.com/custodia-labs/bikeindex-cli/internal/core/domain"

// Navigator decides whether the web surface may perform a navigation.
type Navigator interface {
	// Decide returns NavigationCancel when a policy claimed the navigation.
	Decide(nav domain.Navigation) domain.NavigationDecision
}
