// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the sync subsystem's core and the outside
// world. They define what the application needs from external systems without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [AuthClient]: Authenticates and refreshes credentials against the remote service
//   - [RecordSender]: Delivers capture records to the remote service
//   - [StateStore]: Persists credential, queue, and stats across process restarts
//   - [Notifier]: Surfaces user-facing sync notifications
//   - [HealthChecker]: Probes remote service liveness
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Clock]: Time abstraction for deterministic tests
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (HTTP, JSON file, SQLite, logging).
package ports
