// Package domain defines the core entities of the bikeindex session core.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TokenGrant: The OAuth2 grant held by the token store
//   - SessionConfig: Host and OAuth application settings
//   - Bike, Image: The parts of a bicycle record the core touches
//   - PendingUpload: A background upload awaiting completion
//   - Navigation: A page load the web surface is about to perform
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
