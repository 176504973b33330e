// Package domain defines the core entities of the archive ingestion pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Archive: A compressed exam transfer and its lifecycle state
//   - Dataset / Element: The vendor-neutral decoded header tree
//   - StudyMetadata / ScanEntry: The per-exam metadata document
//   - ChecksumLine / InstanceLine: Per-file manifest rows
//   - Settings: The explicit run configuration passed to every service
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
