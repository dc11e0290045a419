// Package execshell executes git and git-lfs commands on behalf of the
// repository transfer service, logging command lifecycles and converting
// non-zero exits into typed errors.
package execshell
