// Package credential resolves the bearer token attached to every delivery
// request. Sources are consulted in order: the SCRY_API_TOKEN environment
// variable, the configured token, then a short-lived token signed with the
// configured secret. Tokens are never embedded in the binary.
package credential
