// Package api implements the REST surface of the world server.
//
// Routes live under /api and map one-to-one onto WorldService
// operations. Domain failures translate to HTTP status codes:
//
//   - no active identity          -> 401 Unauthorized
//   - not enough points           -> 402 Payment Required
//   - unknown plot or catalog code -> 404 Not Found
//   - ownership and session conflicts -> 409 Conflict
//
// The server also exposes /ws for the websocket hub, /health, and a
// static file server for the browser client.
package api
