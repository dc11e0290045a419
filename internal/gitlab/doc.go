// Package gitlab provides a typed REST client for GitLab instances, covering
// the user, group, project, and membership endpoints the migration engine
// relies on. Requests are rate limited with a token bucket and retried on
// transient transport failures.
package gitlab
