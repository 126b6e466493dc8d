// Package websocket provides real-time streaming of world activity to
// browser clients.
//
// A single Hub fans messages out to every connected client: new world
// events as they are appended, and refreshed world read models after
// mutations and settlement ticks. Clients are write-only from the
// server's perspective; inbound frames only keep the connection alive.
//
// The hub follows the standard hub-and-spoke pattern: one goroutine owns
// the client set and serializes register, unregister, and broadcast
// through channels, while each client runs its own read and write pumps
// with ping/pong keepalive.
package websocket
