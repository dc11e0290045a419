package migration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/migration"
	"github.com/temirov/glmigrate/internal/registry"
)

func TestBuildSummaryAggregatesCountsByKind(testInstance *testing.T) {
	testInstance.Parallel()

	runStartedAt := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	runCompletedAt := runStartedAt.Add(90 * time.Second)

	collectedResults := []migration.Result{
		{EntityKind: registry.KindUser, Status: migration.StatusCompleted, Success: true},
		{EntityKind: registry.KindUser, Status: migration.StatusSkipped, Success: true, Warnings: []string{"user warning"}},
		{EntityKind: registry.KindProject, Status: migration.StatusCompleted, Success: true},
		{EntityKind: registry.KindProject, Status: migration.StatusFailed, ErrorMessage: "create project platform/api: boom"},
	}

	runSummary := migration.BuildSummary(runStartedAt, runCompletedAt, collectedResults)

	require.Equal(testInstance, 4, runSummary.Overall.Total)
	require.Equal(testInstance, 2, runSummary.Overall.Completed)
	require.Equal(testInstance, 1, runSummary.Overall.Skipped)
	require.Equal(testInstance, 1, runSummary.Overall.Failed)

	userCounts := runSummary.CountsByKind[registry.KindUser]
	require.Equal(testInstance, migration.StatusCounts{Total: 2, Completed: 1, Skipped: 1}, userCounts)
	projectCounts := runSummary.CountsByKind[registry.KindProject]
	require.Equal(testInstance, migration.StatusCounts{Total: 2, Completed: 1, Failed: 1}, projectCounts)

	require.Equal(testInstance, []string{"user warning"}, runSummary.Warnings)
	require.Equal(testInstance, []string{"create project platform/api: boom"}, runSummary.Errors)
	require.Equal(testInstance, 90*time.Second, runSummary.Duration())
}

func TestResultWithMetadataCopiesOnWrite(testInstance *testing.T) {
	testInstance.Parallel()

	originalResult := migration.Result{Metadata: map[string]any{"first": 1}}
	updatedResult := originalResult.WithMetadata("second", 2)

	require.Equal(testInstance, map[string]any{"first": 1}, originalResult.Metadata)
	require.Equal(testInstance, map[string]any{"first": 1, "second": 2}, updatedResult.Metadata)
}

func TestResultSkipReason(testInstance *testing.T) {
	testInstance.Parallel()

	require.Empty(testInstance, migration.Result{}.SkipReason())

	skippedResult := migration.Result{}.WithMetadata(migration.MetadataKeySkipReason, migration.SkipReasonAlreadyExists)
	require.Equal(testInstance, migration.SkipReasonAlreadyExists, skippedResult.SkipReason())
}
