// Package protocol owns the ASCII wire contract between a host and the display peripheral.
//
// Ownership boundary:
// - opcode set and frame value types
// - response frame encode/parse (`#<op>(<value>)*`)
// - request frame encode for host-side callers
//
// Sub-packages:
// - frame: sliding ingestion window and marker extraction
// - hexstr: bounded hex string codec used for text and file name payloads
// - schema: per-opcode argument shapes and the argument decoder
package protocol
