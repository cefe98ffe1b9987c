// Package container manages containers on one control plane instance.
//
// A Manager combines the REST client with an operation tracker. Read calls
// (List, Get, State, Profiles) return server records directly. Mutating calls
// submit an operation and return its handle; Wait drives a handle to its
// terminal state with the manager's poll interval and timeout.
//
// The main operations are:
//   - Create, Copy, Update, SetConfig, Delete, Rename: container records
//   - Start, Stop, Restart, Freeze, Unfreeze: lifecycle actions, awaited
//   - ApplyAll: one lifecycle action over many containers concurrently
//   - InitMigration, Migrate: two-phase migration between instances
//
// Error Handling:
//
// Errors unwrap to the errdefs taxonomy. Lifecycle actions are never checked
// locally against the container's state; an illegal transition surfaces as
// errdefs.ErrBadRequest once the server fails the operation. Migrate checks
// the target's profiles before anything is submitted and fails with
// errdefs.ErrMissingProfiles.
//
// Context Support:
//
// Every operation accepts a context.Context. Cancelling it stops the local
// wait but never cancels the server-side operation.
package container
