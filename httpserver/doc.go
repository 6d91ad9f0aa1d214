// Package httpserver exposes the escrow engine over a JSON REST API.
//
// The API mirrors the engine's operations one to one: archaeologist
// registration and bonding under /api/archaeologists, the sarcophagus
// lifecycle under /api/sarcophagi, and protocol administration under
// /api/admin. Health and drain endpoints live at the root for load
// balancer integration, and Prometheus metrics are served on a separate
// listener.
//
// Callers identify themselves with a sender address in the request body.
// The server performs no transport-level authentication; it is meant to
// sit behind a gateway that does.
package httpserver
