// Package auth verifies bearer tokens for connecting clients.
//
// Identity is resolved entirely at the transport boundary, before a
// connection is handed to the gateway: a valid HS256 JWT yields the user ID
// ("sub" claim) and role ("role" claim); connections without a token are
// anonymous when the server allows it.
//
// The gateway core never sees tokens, only the resolved identity.
package auth
