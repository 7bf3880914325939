// Package domain contains the core entities and value objects for likeship.
//
// This package represents the innermost layer of the architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging)
// and contains only pure data and business rules.
//
// # Entities
//
//   - [CaptureRecord]: A single unit of user interest awaiting delivery
//   - [Credential]: The access/refresh token pair for one authenticated session
//   - [QueueItem]: A record parked in the delivery queue with retry bookkeeping
//   - [Stats]: Monotonic capture/sent counters and last-event timestamps
//
// # Commands
//
// The operations the sync subsystem accepts form a closed union: [Capture],
// [RetryQueue], and [GetStatus]. They are dispatched through a single typed
// handler rather than a string-keyed switch.
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
