// Package jwt reads and issues the access tokens carried by a session.
//
// Clients never hold the signing key, so [Inspect] parses claims without
// verifying the signature. It is used only to learn the token's expiry ahead
// of a server round trip. The server side of that contract, [Issuer], signs
// HS256 tokens for in-process fakes and examples.
package jwt
