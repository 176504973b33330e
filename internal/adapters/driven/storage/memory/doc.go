// Package memory provides in-memory implementations of the driven storage
// ports. They back dry runs and tests; nothing survives the process.
package memory
