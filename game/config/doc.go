// Package config manages world configuration presets stored on disk.
//
// A preset describes the shape and economy of a world: grid dimensions,
// the mint price for land, the deploy stake for chargers, the default
// charging rate, and the points seeded to a new player. Presets are
// plain JSON or YAML files in a configuration directory; the config id
// is the filename without its extension.
//
// Key features:
//   - Lazy loading with an in-memory cache behind a read/write lock
//   - JSON and YAML presets side by side in the same directory
//   - A built-in stock world used when no "default" preset exists
//   - Validation of every preset before it enters the cache
//
// The Manager is safe for concurrent use.
package config
