// Package migration implements the orchestration engine that moves users,
// groups, projects, and repositories between two GitLab instances. Phases run
// in dependency order, per kind strategies perform idempotent creation against
// the destination, and a batch scheduler bounds concurrency inside each phase.
package migration
