package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	projectCreateFailureTemplateConstant  = "create project %s: %v"
	projectLookupFailureTemplateConstant  = "look up project %s: %v"
	ownerPromotionWarningTemplateConstant = "promote owner of project %d: %v"
	projectMigratedMessageConstant        = "Project migrated"
	logFieldProjectPathConstant           = "project_path"
	logFieldRetriesNeededConstant         = "retries_needed"
)

// ProjectStrategy migrates projects. Namespace references resolve through the
// identity map with destination path lookups as fallback, and storage level
// path collisions are retried with randomized path suffixes under a bounded
// policy.
type ProjectStrategy struct {
	dependencies StrategyDependencies
	members      *MemberMigrator
	retryPolicy  RetryPolicy
}

// NewProjectStrategy validates dependencies and constructs a ProjectStrategy.
func NewProjectStrategy(dependencies StrategyDependencies, memberMigrator *MemberMigrator, retryPolicy RetryPolicy) (*ProjectStrategy, error) {
	validatedDependencies, validationError := dependencies.validate()
	if validationError != nil {
		return nil, validationError
	}
	if memberMigrator == nil {
		return nil, ErrMemberMigratorNotConfigured
	}
	return &ProjectStrategy{
		dependencies: validatedDependencies,
		members:      memberMigrator,
		retryPolicy:  retryPolicy.Sanitize(),
	}, nil
}

// Kind identifies the entities this strategy migrates.
func (strategy *ProjectStrategy) Kind() registry.EntityKind {
	return registry.KindProject
}

// EntityIdentifier returns a stable display name for one project.
func (strategy *ProjectStrategy) EntityIdentifier(sourceProject gitlab.Project) string {
	return sourceProject.PathWithNamespace
}

// ValidatePrerequisites probes destination connectivity and credentials.
func (strategy *ProjectStrategy) ValidatePrerequisites(executionContext context.Context) error {
	if _, probeError := strategy.dependencies.Destination.CurrentUser(executionContext); probeError != nil {
		return fmt.Errorf(prerequisiteProbeFailureTemplateConst, probeError)
	}
	return nil
}

// MigrateOne migrates a single project. An unresolvable namespace owner is a
// dependency gap and yields a skipped result, never a failure.
func (strategy *ProjectStrategy) MigrateOne(executionContext context.Context, sourceProject gitlab.Project) Result {
	migrationResult := newResult(registry.KindProject, sourceProject.ID, sourceProject.PathWithNamespace, sourceProject)

	existingProject, lookupError := strategy.dependencies.Destination.GetProjectByPath(executionContext, sourceProject.PathWithNamespace)
	if lookupError == nil {
		strategy.dependencies.IdentityMap.Put(registry.KindProject, sourceProject.ID, existingProject.ID)
		migrationResult.DestinationSnapshot = existingProject
		migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, existingProject.ID)
		return completeSkipped(migrationResult, SkipReasonAlreadyExists)
	}
	if !gitlab.IsNotFoundError(lookupError) {
		return completeFailed(migrationResult, fmt.Sprintf(projectLookupFailureTemplateConstant, sourceProject.PathWithNamespace, lookupError))
	}

	destinationNamespaceID, destinationOwnerUserID, namespaceResolved := strategy.resolveNamespace(executionContext, sourceProject)
	if !namespaceResolved {
		return completeSkipped(migrationResult, SkipReasonNamespaceOwnerNotMigrated)
	}

	if strategy.dependencies.DryRun {
		return completeDryRun(migrationResult)
	}

	createRequest := gitlab.CreateProjectRequest{
		Name:          sourceProject.Name,
		Path:          sourceProject.Path,
		Description:   sourceProject.Description,
		Visibility:    sourceProject.Visibility,
		NamespaceID:   destinationNamespaceID,
		DefaultBranch: sourceProject.DefaultBranch,
		LFSEnabled:    sourceProject.LFSEnabled,
	}

	createdProject := gitlab.Project{}
	attemptedPath := sourceProject.Path
	isFirstAttempt := true
	retriesPerformed, createError := strategy.retryPolicy.Run(nil, func() error {
		if !isFirstAttempt {
			attemptedPath = AppendUniquePathSuffix(sourceProject.Path)
		}
		isFirstAttempt = false

		createRequest.Path = attemptedPath
		attemptedProject, attemptError := strategy.dependencies.Destination.CreateProject(executionContext, createRequest)
		if attemptError == nil {
			createdProject = attemptedProject
		}
		return attemptError
	}, func(candidateError error) bool {
		return strategy.dependencies.Classifier.Classify(candidateError) == ConflictDisk
	})

	migrationResult = migrationResult.WithMetadata(MetadataKeyRetriesNeeded, retriesPerformed)

	if createError != nil {
		if IsAttemptsExceeded(createError) {
			return completeSkipped(migrationResult, SkipReasonPersistentDiskConflict)
		}
		if strategy.dependencies.Classifier.Classify(createError) == ConflictAlreadyExists {
			strategy.backfillExistingProject(executionContext, sourceProject, &migrationResult)
			return completeSkipped(migrationResult, SkipReasonAlreadyExists)
		}
		return completeFailed(migrationResult, fmt.Sprintf(projectCreateFailureTemplateConstant, sourceProject.PathWithNamespace, createError))
	}

	strategy.dependencies.IdentityMap.Put(registry.KindProject, sourceProject.ID, createdProject.ID)
	migrationResult.DestinationSnapshot = createdProject
	migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, createdProject.ID)
	migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationPath, createdProject.PathWithNamespace)

	memberOutcome := strategy.members.MigrateMembers(executionContext, gitlab.ProjectMembers, sourceProject.ID, createdProject.ID)
	migrationResult = migrationResult.WithMetadata(MetadataKeyMembersMigrated, memberOutcome.Migrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeyMembersSkipped, memberOutcome.Skipped)
	migrationResult.Warnings = append(migrationResult.Warnings, memberOutcome.Warnings...)

	if promotionWarning := strategy.promoteOwner(executionContext, createdProject.ID, destinationOwnerUserID); len(promotionWarning) > 0 {
		migrationResult.Warnings = append(migrationResult.Warnings, promotionWarning)
	}

	strategy.dependencies.Logger.Debug(
		projectMigratedMessageConstant,
		zap.String(logFieldProjectPathConstant, sourceProject.PathWithNamespace),
		zap.Int(logFieldRetriesNeededConstant, retriesPerformed),
	)
	return completeSucceeded(migrationResult)
}

// resolveNamespace maps the source namespace onto the destination. The last
// return value reports whether resolution succeeded; the owner user
// identifier is non-zero only for user namespaces.
func (strategy *ProjectStrategy) resolveNamespace(executionContext context.Context, sourceProject gitlab.Project) (int64, int64, bool) {
	sourceNamespace := sourceProject.Namespace

	if sourceNamespace.Kind == gitlab.NamespaceKindGroup {
		mappedGroupID, groupMapped := strategy.dependencies.IdentityMap.Lookup(registry.KindGroup, sourceNamespace.ID)
		if groupMapped {
			return mappedGroupID, 0, true
		}

		destinationGroup, lookupError := strategy.dependencies.Destination.GetGroupByFullPath(executionContext, sourceNamespace.FullPath)
		if lookupError != nil {
			return 0, 0, false
		}
		strategy.dependencies.IdentityMap.Put(registry.KindGroup, sourceNamespace.ID, destinationGroup.ID)
		return destinationGroup.ID, 0, true
	}

	destinationUsername := ""
	mappedUserID, userMapped := strategy.dependencies.IdentityMap.Lookup(registry.KindUser, sourceNamespace.ID)
	if userMapped {
		destinationUser, userLookupError := strategy.dependencies.Destination.GetUser(executionContext, mappedUserID)
		if userLookupError != nil {
			return 0, 0, false
		}
		destinationUsername = destinationUser.Username
	} else {
		usernameMatches, searchError := strategy.dependencies.Destination.SearchUsersByUsername(executionContext, sourceNamespace.Path)
		if searchError != nil || len(usernameMatches) == 0 {
			return 0, 0, false
		}
		mappedUserID = usernameMatches[0].ID
		destinationUsername = usernameMatches[0].Username
	}

	destinationNamespace, namespaceLookupError := strategy.dependencies.Destination.GetNamespaceByPath(executionContext, destinationUsername)
	if namespaceLookupError != nil {
		return 0, 0, false
	}
	return destinationNamespace.ID, mappedUserID, true
}

// backfillExistingProject records the mapping for a project the destination
// reported as existing during creation.
func (strategy *ProjectStrategy) backfillExistingProject(executionContext context.Context, sourceProject gitlab.Project, migrationResult *Result) {
	existingProject, lookupError := strategy.dependencies.Destination.GetProjectByPath(executionContext, sourceProject.PathWithNamespace)
	if lookupError != nil {
		return
	}
	strategy.dependencies.IdentityMap.Put(registry.KindProject, sourceProject.ID, existingProject.ID)
	migrationResult.DestinationSnapshot = existingProject
	*migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, existingProject.ID)
}

// promoteOwner raises the namespace owning user to Owner access on the
// created project. Rejections caused by inherited grants are tolerated.
func (strategy *ProjectStrategy) promoteOwner(executionContext context.Context, destinationProjectID int64, destinationOwnerUserID int64) string {
	if destinationOwnerUserID == 0 {
		return ""
	}

	existingMember, findError := strategy.dependencies.Destination.FindMember(executionContext, gitlab.ProjectMembers, destinationProjectID, destinationOwnerUserID)
	if findError == nil && existingMember.AccessLevel >= gitlab.AccessLevelOwner {
		return ""
	}

	if findError != nil && !gitlab.IsNotFoundError(findError) {
		return fmt.Sprintf(ownerPromotionWarningTemplateConstant, destinationProjectID, findError)
	}

	if findError == nil {
		_, updateError := strategy.dependencies.Destination.UpdateMemberAccess(executionContext, gitlab.ProjectMembers, destinationProjectID, destinationOwnerUserID, gitlab.AccessLevelOwner)
		if updateError != nil && strategy.dependencies.Classifier.Classify(updateError) != ConflictInheritedPermission {
			return fmt.Sprintf(ownerPromotionWarningTemplateConstant, destinationProjectID, updateError)
		}
		return ""
	}

	_, addError := strategy.dependencies.Destination.AddMember(executionContext, gitlab.ProjectMembers, destinationProjectID, gitlab.AddMemberRequest{
		UserID:      destinationOwnerUserID,
		AccessLevel: gitlab.AccessLevelOwner,
	})
	if addError != nil {
		classifiedConflict := strategy.dependencies.Classifier.Classify(addError)
		if classifiedConflict != ConflictAlreadyExists && classifiedConflict != ConflictInheritedPermission {
			return fmt.Sprintf(ownerPromotionWarningTemplateConstant, destinationProjectID, addError)
		}
	}
	return ""
}
