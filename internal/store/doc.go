// Package store persists completed chat turns for audit and history.
// This package is internal and should not be imported by external projects.
package store
