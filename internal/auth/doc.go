// Package auth holds the identity core shared by the browser and API
// surfaces: bcrypt password hashing, server-side sessions carried in a signed
// cookie, HS256 bearer tokens and the ownership guard.
//
// Both surfaces resolve a request to a Principal; handlers then pass the
// principal's user id to Authorize (directly or through the owner-scoped
// services) before any resource is read or changed.
package auth
