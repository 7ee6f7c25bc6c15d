// Package pgstore implements the goGate credential and permission stores on
// PostgreSQL through database/sql and the pgx stdlib driver.
//
// Expected tables:
//
//	users(id text primary key, email text unique, password text, role_id text, deleted_at timestamptz)
//	role_permissions(role_id text, action text, subject text)
//
// Soft-deleted users are invisible to both stores.
package pgstore
