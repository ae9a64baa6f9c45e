// Package provision idempotently ensures the remote prerequisites of a deploy
// exist: a named network configuration and a funded signing identity. Both
// operations query the deploy CLI's own state first and only create what is
// absent, so re-running the pipeline after a failure is always safe.
//
// A newly generated identity has no funds. EnsureIdentity blocks on the
// configured confirm.Provider until the operator has funded the address out
// of band. If the run is interrupted during that wait the identity remains
// and the next run reuses it without prompting.
package provision
