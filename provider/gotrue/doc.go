// Package gotrue implements session.ProviderGateway against a GoTrue-style
// identity API (password and refresh-token grants, hosted OAuth authorize
// endpoint, fragment-based callbacks). It owns persistence of the raw session
// blob through the Storage interface and emits auth events to registered
// listeners as sessions are established, refreshed, and revoked.
package gotrue
