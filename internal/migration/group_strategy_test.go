package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/migration"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	testSourceParentGroupIDConstant = int64(30)
	testDestinationParentIDConstant = int64(130)
	testCreatedGroupIDConstant      = int64(2000)
)

func newTestGroupStrategy(testInstance *testing.T, source *sourceStub, destination *destinationStub, identityMap *registry.Registry) *migration.GroupStrategy {
	dependencies := newTestStrategyDependencies(source, destination, identityMap)
	groupStrategy, constructionError := migration.NewGroupStrategy(dependencies, newTestMemberMigrator(testInstance, source, destination, identityMap))
	require.NoError(testInstance, constructionError)
	return groupStrategy
}

func TestGroupStrategyCreatesMissingGroup(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	recordedRequests := []gitlab.CreateGroupRequest{}
	destination := &destinationStub{
		createGroupFunc: func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
			recordedRequests = append(recordedRequests, request)
			return gitlab.Group{ID: testCreatedGroupIDConstant, Name: request.Name, Path: request.Path, FullPath: request.Path}, nil
		},
	}

	groupStrategy := newTestGroupStrategy(testInstance, &sourceStub{}, destination, identityMap)
	sourceGroup := gitlab.Group{ID: 41, Name: "Platform", Path: "platform", FullPath: "platform", Visibility: gitlab.VisibilityPrivate}
	migrationResult := groupStrategy.MigrateOne(context.Background(), sourceGroup)

	require.Equal(testInstance, migration.StatusCompleted, migrationResult.Status)
	require.Len(testInstance, recordedRequests, 1)
	require.Equal(testInstance, "platform", recordedRequests[0].Path)
	require.Zero(testInstance, recordedRequests[0].ParentID)

	mappedIdentifier, mappingFound := identityMap.Lookup(registry.KindGroup, sourceGroup.ID)
	require.True(testInstance, mappingFound)
	require.Equal(testInstance, testCreatedGroupIDConstant, mappedIdentifier)
}

func TestGroupStrategySkipsExistingGroupButStillMigratesMembers(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	identityMap.Put(registry.KindUser, testMemberUserIDConstant, testMappedMemberIDConstant)

	source := &sourceStub{
		membersByOwner: map[string][]gitlab.Member{
			ownerKey(gitlab.GroupMembers, 41): {
				{ID: testMemberUserIDConstant, Username: "alice", AccessLevel: gitlab.AccessLevelDeveloper},
			},
		},
	}

	addedMemberCount := 0
	destination := &destinationStub{
		getGroupByFullPathFunc: func(executionContext context.Context, fullPath string) (gitlab.Group, error) {
			return gitlab.Group{ID: testDestinationParentIDConstant, FullPath: fullPath}, nil
		},
		addMemberFunc: func(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, request gitlab.AddMemberRequest) (gitlab.Member, error) {
			addedMemberCount++
			require.Equal(testInstance, testDestinationParentIDConstant, ownerID)
			return gitlab.Member{ID: request.UserID, AccessLevel: request.AccessLevel}, nil
		},
	}

	groupStrategy := newTestGroupStrategy(testInstance, source, destination, identityMap)
	migrationResult := groupStrategy.MigrateOne(context.Background(), gitlab.Group{ID: 41, Name: "Platform", Path: "platform", FullPath: "platform"})

	require.Equal(testInstance, migration.StatusSkipped, migrationResult.Status)
	require.Equal(testInstance, migration.SkipReasonAlreadyExists, migrationResult.SkipReason())
	require.True(testInstance, migrationResult.Success)
	require.Equal(testInstance, 1, addedMemberCount)
	require.Equal(testInstance, 1, migrationResult.Metadata[migration.MetadataKeyMembersMigrated])

	mappedIdentifier, mappingFound := identityMap.Lookup(registry.KindGroup, int64(41))
	require.True(testInstance, mappingFound)
	require.Equal(testInstance, testDestinationParentIDConstant, mappedIdentifier)
}

func TestGroupStrategyResolvesParentThroughIdentityMap(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	identityMap.Put(registry.KindGroup, testSourceParentGroupIDConstant, testDestinationParentIDConstant)

	recordedRequests := []gitlab.CreateGroupRequest{}
	destination := &destinationStub{
		createGroupFunc: func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
			recordedRequests = append(recordedRequests, request)
			return gitlab.Group{ID: testCreatedGroupIDConstant, Path: request.Path, FullPath: "platform/" + request.Path}, nil
		},
	}

	groupStrategy := newTestGroupStrategy(testInstance, &sourceStub{}, destination, identityMap)
	sourceGroup := gitlab.Group{ID: 42, Name: "Backend", Path: "backend", FullPath: "platform/backend", ParentID: testSourceParentGroupIDConstant}
	migrationResult := groupStrategy.MigrateOne(context.Background(), sourceGroup)

	require.Equal(testInstance, migration.StatusCompleted, migrationResult.Status)
	require.Len(testInstance, recordedRequests, 1)
	require.Equal(testInstance, testDestinationParentIDConstant, recordedRequests[0].ParentID)
	require.Empty(testInstance, migrationResult.Warnings)
}

func TestGroupStrategyBackfillsParentFromDestinationPath(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	recordedRequests := []gitlab.CreateGroupRequest{}
	destination := &destinationStub{
		getGroupByFullPathFunc: func(executionContext context.Context, fullPath string) (gitlab.Group, error) {
			if fullPath == "platform" {
				return gitlab.Group{ID: testDestinationParentIDConstant, FullPath: fullPath}, nil
			}
			return gitlab.Group{}, notFoundFailure()
		},
		createGroupFunc: func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
			recordedRequests = append(recordedRequests, request)
			return gitlab.Group{ID: testCreatedGroupIDConstant, Path: request.Path, FullPath: "platform/" + request.Path}, nil
		},
	}

	groupStrategy := newTestGroupStrategy(testInstance, &sourceStub{}, destination, identityMap)
	sourceGroup := gitlab.Group{ID: 43, Name: "Backend", Path: "backend", FullPath: "platform/backend", ParentID: testSourceParentGroupIDConstant}
	migrationResult := groupStrategy.MigrateOne(context.Background(), sourceGroup)

	require.Equal(testInstance, migration.StatusCompleted, migrationResult.Status)
	require.Len(testInstance, recordedRequests, 1)
	require.Equal(testInstance, testDestinationParentIDConstant, recordedRequests[0].ParentID)

	backfilledParentID, parentMapped := identityMap.Lookup(registry.KindGroup, testSourceParentGroupIDConstant)
	require.True(testInstance, parentMapped)
	require.Equal(testInstance, testDestinationParentIDConstant, backfilledParentID)
}

func TestGroupStrategyCreatesAtRootWithWarningWhenParentUnresolved(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	recordedRequests := []gitlab.CreateGroupRequest{}
	destination := &destinationStub{
		createGroupFunc: func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
			recordedRequests = append(recordedRequests, request)
			return gitlab.Group{ID: testCreatedGroupIDConstant, Path: request.Path, FullPath: request.Path}, nil
		},
	}

	groupStrategy := newTestGroupStrategy(testInstance, &sourceStub{}, destination, identityMap)
	sourceGroup := gitlab.Group{ID: 44, Name: "Backend", Path: "backend", FullPath: "platform/backend", ParentID: testSourceParentGroupIDConstant}
	migrationResult := groupStrategy.MigrateOne(context.Background(), sourceGroup)

	require.Equal(testInstance, migration.StatusCompleted, migrationResult.Status)
	require.Len(testInstance, recordedRequests, 1)
	require.Zero(testInstance, recordedRequests[0].ParentID)
	require.Len(testInstance, migrationResult.Warnings, 1)
	require.Contains(testInstance, migrationResult.Warnings[0], "platform/backend")
}

func TestGroupStrategyDryRunAvoidsCreation(testInstance *testing.T) {
	testInstance.Parallel()

	identityMap := registry.NewRegistry()
	createCallCount := 0
	destination := &destinationStub{
		createGroupFunc: func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
			createCallCount++
			return gitlab.Group{ID: testCreatedGroupIDConstant}, nil
		},
	}

	dependencies := newTestStrategyDependencies(&sourceStub{}, destination, identityMap)
	dependencies.DryRun = true
	groupStrategy, constructionError := migration.NewGroupStrategy(dependencies, newTestMemberMigrator(testInstance, &sourceStub{}, destination, identityMap))
	require.NoError(testInstance, constructionError)

	migrationResult := groupStrategy.MigrateOne(context.Background(), gitlab.Group{ID: 45, Name: "Platform", Path: "platform", FullPath: "platform"})
	require.Equal(testInstance, migration.StatusCompleted, migrationResult.Status)
	require.Equal(testInstance, true, migrationResult.Metadata[migration.MetadataKeyDryRun])
	require.Zero(testInstance, createCallCount)
}
