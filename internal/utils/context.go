// Package utils provides shared utility functions and constants
package utils

// ContextKeyCreds is the key used to store credentials in the echo context
const ContextKeyCreds = "creds"

// HeaderRequestID carries the per-request correlation id
const HeaderRequestID = "X-Request-Id"

// AuthRealm is advertised in WWW-Authenticate challenges
const AuthRealm = "iron-dav"
