// Package relay owns the peripheral command loop.
//
// Ownership boundary:
// - one Session per transport: ingest -> extract -> decode -> dispatch -> respond
// - the opcode -> capability handler table
// - outcome reporting (stats, metrics, trace hooks)
//
// A Session is single-threaded. Its window and decoder scratch are owned by the loop
// that calls Step or Run, so no locking is done on the hot path.
package relay
