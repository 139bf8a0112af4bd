// Package session provides the Redis-backed session store holding
// per-session conversation history.
// This package is internal and should not be imported by external projects.
package session
