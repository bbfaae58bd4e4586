// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the engine configuration from flags, the
// environment, a .env file, an optional YAML config file, and the
// .secrets/ directory.
package config
