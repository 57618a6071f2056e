// Package session provides snapshot stores for solo and group sessions.
// Stores persist whole sessions replace-on-write; the in-memory variant
// suits tests and demos while the sqlite subpackage adds durability.
package session
