// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The orchestrator lives here: it runs the tool-calling protocol against a
// reasoning service, retrying with backoff and throttling outbound calls.
package services
