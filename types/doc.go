// Package types defines the core data model shared across docflow:
// retrieval plans, evidence fragments, sufficiency verdicts, refinement
// state, and the structured error taxonomy.
package types
