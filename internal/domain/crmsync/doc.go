// Package crmsync holds the domain model for reconciling local users with
// contacts in an external CRM: the append-only sync audit log, the contact
// gateway port and the errors raised while talking to the remote system.
package crmsync
