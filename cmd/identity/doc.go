// Package identity holds the directory model of EBAuth.
//
// It defines the resolved principal (Identity), the persisted directory row
// (StoredCredential) and the Store boundary keyed by (service, user), together
// with the concrete Store backends: memory, PostgreSQL, BadgerDB and DynamoDB.
//
// Passwords and tokens are handled by cmd/security/*; this package never sees
// plaintext secrets other than passing digests through.
package identity
