package migration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	groupCreateFailureTemplateConstant   = "create group %s: %v"
	groupParentUnresolvedWarningTemplate = "group %s parent %d unresolved, creating at root level"
	groupMigratedMessageConstant         = "Group migrated"
	groupPathSeparatorConstant           = "/"
	logFieldGroupPathConstant            = "group_path"
)

// GroupStrategy migrates groups and re-applies their memberships. Parent
// references resolve through the identity map populated by earlier entries,
// with a destination path lookup as the fallback for partial runs.
type GroupStrategy struct {
	dependencies StrategyDependencies
	members      *MemberMigrator
}

// NewGroupStrategy validates dependencies and constructs a GroupStrategy.
func NewGroupStrategy(dependencies StrategyDependencies, memberMigrator *MemberMigrator) (*GroupStrategy, error) {
	validatedDependencies, validationError := dependencies.validate()
	if validationError != nil {
		return nil, validationError
	}
	if memberMigrator == nil {
		return nil, ErrMemberMigratorNotConfigured
	}
	return &GroupStrategy{dependencies: validatedDependencies, members: memberMigrator}, nil
}

// Kind identifies the entities this strategy migrates.
func (strategy *GroupStrategy) Kind() registry.EntityKind {
	return registry.KindGroup
}

// EntityIdentifier returns a stable display name for one group.
func (strategy *GroupStrategy) EntityIdentifier(sourceGroup gitlab.Group) string {
	return sourceGroup.FullPath
}

// ValidatePrerequisites probes destination connectivity and credentials.
func (strategy *GroupStrategy) ValidatePrerequisites(executionContext context.Context) error {
	if _, probeError := strategy.dependencies.Destination.CurrentUser(executionContext); probeError != nil {
		return fmt.Errorf(prerequisiteProbeFailureTemplateConst, probeError)
	}
	return nil
}

// MigrateOne migrates a single group. Existing destination groups are mapped
// and skipped, but membership is still re-applied against them.
func (strategy *GroupStrategy) MigrateOne(executionContext context.Context, sourceGroup gitlab.Group) Result {
	migrationResult := newResult(registry.KindGroup, sourceGroup.ID, sourceGroup.FullPath, sourceGroup)

	existingGroup, lookupError := strategy.findExistingGroup(executionContext, sourceGroup)
	if lookupError != nil {
		return completeFailed(migrationResult, fmt.Sprintf(groupCreateFailureTemplateConstant, sourceGroup.FullPath, lookupError))
	}
	if existingGroup != nil {
		strategy.dependencies.IdentityMap.Put(registry.KindGroup, sourceGroup.ID, existingGroup.ID)
		migrationResult.DestinationSnapshot = *existingGroup
		migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, existingGroup.ID)
		migrationResult = strategy.applyMembers(executionContext, migrationResult, sourceGroup.ID, existingGroup.ID)
		return completeSkipped(migrationResult, SkipReasonAlreadyExists)
	}

	if strategy.dependencies.DryRun {
		return completeDryRun(migrationResult)
	}

	createRequest := gitlab.CreateGroupRequest{
		Name:        sourceGroup.Name,
		Path:        sourceGroup.Path,
		Description: sourceGroup.Description,
		Visibility:  sourceGroup.Visibility,
	}

	if sourceGroup.ParentID > 0 {
		resolvedParentID, parentResolved := strategy.resolveParent(executionContext, sourceGroup)
		if parentResolved {
			createRequest.ParentID = resolvedParentID
		} else {
			migrationResult.Warnings = append(migrationResult.Warnings, fmt.Sprintf(groupParentUnresolvedWarningTemplate, sourceGroup.FullPath, sourceGroup.ParentID))
		}
	}

	createdGroup, createError := strategy.dependencies.Destination.CreateGroup(executionContext, createRequest)
	if createError != nil {
		if strategy.dependencies.Classifier.Classify(createError) == ConflictAlreadyExists {
			return completeSkipped(migrationResult, SkipReasonAlreadyExists)
		}
		return completeFailed(migrationResult, fmt.Sprintf(groupCreateFailureTemplateConstant, sourceGroup.FullPath, createError))
	}

	strategy.dependencies.IdentityMap.Put(registry.KindGroup, sourceGroup.ID, createdGroup.ID)
	migrationResult.DestinationSnapshot = createdGroup
	migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, createdGroup.ID)
	migrationResult = strategy.applyMembers(executionContext, migrationResult, sourceGroup.ID, createdGroup.ID)

	strategy.dependencies.Logger.Debug(groupMigratedMessageConstant, zap.String(logFieldGroupPathConstant, sourceGroup.FullPath))
	return completeSucceeded(migrationResult)
}

// findExistingGroup looks the group up on the destination by full path first,
// then by bare path for groups migrated to the root level.
func (strategy *GroupStrategy) findExistingGroup(executionContext context.Context, sourceGroup gitlab.Group) (*gitlab.Group, error) {
	fullPathMatch, fullPathError := strategy.dependencies.Destination.GetGroupByFullPath(executionContext, sourceGroup.FullPath)
	if fullPathError == nil {
		return &fullPathMatch, nil
	}
	if !gitlab.IsNotFoundError(fullPathError) {
		return nil, fullPathError
	}

	if sourceGroup.Path == sourceGroup.FullPath {
		return nil, nil
	}

	barePathMatch, barePathError := strategy.dependencies.Destination.GetGroupByFullPath(executionContext, sourceGroup.Path)
	if barePathError == nil {
		return &barePathMatch, nil
	}
	if !gitlab.IsNotFoundError(barePathError) {
		return nil, barePathError
	}
	return nil, nil
}

// resolveParent maps the source parent group to its destination identifier,
// backfilling the identity map when the parent is found by path lookup.
func (strategy *GroupStrategy) resolveParent(executionContext context.Context, sourceGroup gitlab.Group) (int64, bool) {
	mappedParentID, parentMapped := strategy.dependencies.IdentityMap.Lookup(registry.KindGroup, sourceGroup.ParentID)
	if parentMapped {
		return mappedParentID, true
	}

	parentFullPath := parentPathOf(sourceGroup.FullPath)
	if len(parentFullPath) == 0 {
		return 0, false
	}

	destinationParent, lookupError := strategy.dependencies.Destination.GetGroupByFullPath(executionContext, parentFullPath)
	if lookupError != nil {
		return 0, false
	}

	strategy.dependencies.IdentityMap.Put(registry.KindGroup, sourceGroup.ParentID, destinationParent.ID)
	return destinationParent.ID, true
}

func (strategy *GroupStrategy) applyMembers(executionContext context.Context, migrationResult Result, sourceGroupID int64, destinationGroupID int64) Result {
	memberOutcome := strategy.members.MigrateMembers(executionContext, gitlab.GroupMembers, sourceGroupID, destinationGroupID)
	migrationResult = migrationResult.WithMetadata(MetadataKeyMembersMigrated, memberOutcome.Migrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeyMembersSkipped, memberOutcome.Skipped)
	migrationResult.Warnings = append(migrationResult.Warnings, memberOutcome.Warnings...)
	return migrationResult
}

// parentPathOf returns the full path of a group's parent, or an empty string
// for root level groups.
func parentPathOf(fullPath string) string {
	lastSeparatorIndex := strings.LastIndex(fullPath, groupPathSeparatorConstant)
	if lastSeparatorIndex <= 0 {
		return ""
	}
	return fullPath[:lastSeparatorIndex]
}
