// Package gamedb implements the client for the remote game-metadata API.
//
// The outbound query language is a structured filter/search string (fields,
// where, search, limit clauses) posted to the games endpoint; authentication
// uses a client-credentials token grant. Upstream rejection classes map onto
// the sentinel errors in internal/services so the request gate can pick the
// right recovery path.
package gamedb
