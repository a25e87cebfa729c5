// Package httpauth connects the accounts service to HTTP transports: cookie
// writers for fiber and go-router, a fiber session middleware, JSON error
// mapping and a small set of fiber handlers.
package httpauth
