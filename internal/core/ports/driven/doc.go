// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SecureStore: Opaque secret persistence (the token grant)
//   - GrantExchanger: OAuth token endpoint calls
//   - Scheduler: One-shot timers for proactive refresh
//   - ConfigStore: Settings file
//
// # Background Uploads
//
//   - BackgroundTransport: File-backed uploads that outlive the caller
//   - UploadStore: Pending uploads awaiting completion
//   - BikeStore: Local bike records updated when an upload completes
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
