package migration

import (
	"time"

	"github.com/temirov/glmigrate/internal/registry"
)

// Status describes the lifecycle position of one migrated unit.
type Status string

// Result statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Skip reasons recorded in result metadata.
const (
	SkipReasonAlreadyExists              = "already_exists"
	SkipReasonSystemOrBotUser            = "system_or_bot_user"
	SkipReasonNamespaceOwnerNotMigrated  = "namespace_owner_not_migrated"
	SkipReasonPersistentDiskConflict     = "persistent_disk_conflict"
	MetadataKeySkipReason                = "skip_reason"
	MetadataKeyRetriesNeeded             = "retries_needed"
	MetadataKeyDestinationPath           = "destination_path"
	MetadataKeyMembersMigrated           = "members_migrated"
	MetadataKeyMembersSkipped            = "members_skipped"
	MetadataKeyBranchesMigrated          = "branches_migrated"
	MetadataKeyTagsMigrated              = "tags_migrated"
	MetadataKeyCommitsMigrated           = "commits_migrated"
	MetadataKeyLFSObjectsMigrated        = "lfs_objects_migrated"
	MetadataKeySizeBytes                 = "size_bytes"
	MetadataKeyDryRun                    = "dry_run"
	MetadataKeyDestinationIdentifierName = "destination_id"
)

// Result is the immutable outcome record for one source entity in one phase.
type Result struct {
	EntityKind          registry.EntityKind
	EntityID            int64
	EntityName          string
	Status              Status
	Success             bool
	StartedAt           time.Time
	CompletedAt         time.Time
	SourceSnapshot      any
	DestinationSnapshot any
	ErrorMessage        string
	Warnings            []string
	Metadata            map[string]any
}

// SkipReason returns the recorded skip reason, if any.
func (migrationResult Result) SkipReason() string {
	skipReason, _ := migrationResult.Metadata[MetadataKeySkipReason].(string)
	return skipReason
}

// WithMetadata returns a copy of the result with one metadata entry added.
func (migrationResult Result) WithMetadata(metadataKey string, metadataValue any) Result {
	updatedMetadata := make(map[string]any, len(migrationResult.Metadata)+1)
	for existingKey, existingValue := range migrationResult.Metadata {
		updatedMetadata[existingKey] = existingValue
	}
	updatedMetadata[metadataKey] = metadataValue
	migrationResult.Metadata = updatedMetadata
	return migrationResult
}

// StatusCounts aggregates result totals for one entity kind.
type StatusCounts struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
}

// Summary aggregates every result produced by one run.
type Summary struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	Overall      StatusCounts
	CountsByKind map[registry.EntityKind]StatusCounts
	Results      []Result
	Warnings     []string
	Errors       []string
}

// Duration returns the wall clock duration of the run.
func (runSummary Summary) Duration() time.Duration {
	return runSummary.CompletedAt.Sub(runSummary.StartedAt)
}

// BuildSummary folds a result list into a Summary.
func BuildSummary(startedAt time.Time, completedAt time.Time, results []Result) Summary {
	runSummary := Summary{
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		CountsByKind: map[registry.EntityKind]StatusCounts{},
		Results:      results,
	}

	for _, migrationResult := range results {
		kindCounts := runSummary.CountsByKind[migrationResult.EntityKind]
		kindCounts.Total++
		runSummary.Overall.Total++

		switch migrationResult.Status {
		case StatusCompleted:
			kindCounts.Completed++
			runSummary.Overall.Completed++
		case StatusFailed:
			kindCounts.Failed++
			runSummary.Overall.Failed++
		case StatusSkipped:
			kindCounts.Skipped++
			runSummary.Overall.Skipped++
		}

		runSummary.CountsByKind[migrationResult.EntityKind] = kindCounts

		runSummary.Warnings = append(runSummary.Warnings, migrationResult.Warnings...)
		if len(migrationResult.ErrorMessage) > 0 {
			runSummary.Errors = append(runSummary.Errors, migrationResult.ErrorMessage)
		}
	}

	return runSummary
}
