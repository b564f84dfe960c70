// Package wire serializes task events for consumers outside the process.
//
// Every event becomes a Record {taskId, contextId, kind, payload}. Records
// are written as JSON lines or as a CBOR sequence (Core Deterministic
// Encoding, so identical records encode to identical bytes). Specialist
// catalogs can be exported as YAML.
package wire
