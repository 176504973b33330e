// Package services implements the driving port interfaces.
// Services contain the ingestion logic and orchestrate calls to driven
// ports (adapters): discovery, identity, the extraction pool, scan
// classification, per-instance harvesting and the run orchestrator.
//
// Services depend only on ports and domain types, never on adapters.
package services
