// Package api defines the request and response types of the docflow HTTP
// API. Handlers live in the handlers subpackage.
package api
