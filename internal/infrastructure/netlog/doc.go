// Package netlog persists network request events reported by the peer as
// JSON lines, one file per peer session, optionally gzip or zstd compressed.
package netlog
