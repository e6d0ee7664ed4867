// Package auditboard implements the REST client used by every abctl command.
//
// It exposes Client for issuing GET, POST, and DELETE requests against an
// AuditBoard instance with linear-backoff retries, a ResourceKind table
// describing the hierarchy collections, and Record helpers for reading the
// loosely-typed JSON payloads the API returns.
package auditboard
