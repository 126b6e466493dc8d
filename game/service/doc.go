// Package service exposes the world to transports through a single
// WorldService interface.
//
// The service owns the wiring between the settlement engine, the charge
// point catalog, and the websocket hub:
//   - every successful mutation is broadcast to connected clients as the
//     new event plus a refreshed world read model
//   - catalog-backed operations (spawn, listings, stats) degrade to
//     explicit errors when the server runs without a feed
//   - multi-step operations such as SpawnFromChargePoint are serialized
//     so their engine mutations land as a unit
//
// Transports (api, transport/mcp) depend only on the interface, which
// keeps them testable against lightweight mocks.
package service
