// Package users implements a user-account backend: registration,
// credential verification with bearer-token issuance, and account
// lifecycle rules (username uniqueness, minimum age, partial updates).
//
// The core is assembled from explicit collaborators rather than a
// container: a Service takes a RepositoryManager, a password hasher, a
// TokenProvider and a Config. The HTTP controllers in this package are
// a thin adapter over the Service; they validate payload shape and map
// typed failures to status codes, nothing more.
package users
