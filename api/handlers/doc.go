// Package handlers implements the docflow HTTP endpoints: chat turns,
// session management and health probes. All responses use the shared
// Response envelope.
package handlers
