// Package mcp exposes the world as a set of MCP tools for AI agents.
//
// The Client is a thin proxy: every tool call is translated into a REST
// request against the running API server, and responses are rendered as
// compact text an agent can reason about (an ASCII grid of plot
// ownership, balance listings, the event log). Keeping the MCP surface
// stateless means agents and browsers always observe the same world
// through the same API.
package mcp
