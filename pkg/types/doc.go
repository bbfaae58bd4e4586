// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across the evidence engine:
// provider papers and reference edges, index records and their metadata, and
// configuration for every component.
package types
