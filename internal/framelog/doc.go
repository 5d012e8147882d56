// Package framelog records the bus traffic seen by the monitor as a
// stream of CBOR-encoded events, one per frame, for post-incident
// inspection. Recording is optional and enabled by configuring a trace
// file; it must never disrupt the monitor, so write errors are swallowed
// after the file has been opened.
//
// Events use integer CBOR keys for compactness and RFC3339Nano
// timestamps, so standard CBOR tooling can process a trace directly.
package framelog
