// Package server wires configuration, the session manager, the AI client,
// metrics, and the HTTP/websocket surfaces into a runnable service.
package server
