// Package ws streams emulator sessions over a websocket: step commands in,
// step results and state snapshots out. Frame payloads are large, so
// messages are encoded with sonic rather than the stdlib encoder.
package ws
