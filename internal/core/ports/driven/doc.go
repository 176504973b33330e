// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - HeaderDecoder: Decodes instance headers (suyashkumar/dicom)
//   - ArchiveExtractor: Unpacks compressed exam archives
//   - Checksummer: Whole-file content digests
//   - ArtifactWriter: Writes study documents and manifests
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IngestLedger: Record of ingested exams. Without it, ledger dedup is disabled.
//   - ArtifactReader: Reads artifacts back. Needed by verify and artifact dedup.
//   - SchedulerStore: Task state and history. Needed by the scheduler only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or decoder package
package driven
