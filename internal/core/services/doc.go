// Package services implements the driving port interfaces.
// Services contain the session logic and orchestrate calls to driven
// ports (adapters). The only external dependency is golang.org/x/oauth2,
// used to build authorization URLs.
package services
