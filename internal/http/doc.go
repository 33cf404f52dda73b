// Package http contains the gin handlers for the emulator service boundary:
// session lifecycle, stepping, state persistence, health queries, and the AI
// chat relay.
package http
