// Package shared holds cross-cutting helpers that belong to no single
// layer of the converter.
//
// # Structure
//
// - testutil: capturing slog handlers and log assertions used by
// package tests across the codebase
//
// The package should stay free of business logic and of dependencies
// on other internal packages.
package shared
