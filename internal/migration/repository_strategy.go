package migration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/registry"
	"github.com/temirov/glmigrate/internal/transfer"
)

const (
	repositoryDependencyTemplateConstant   = "repository %s: owning project %d was not migrated"
	repositoryLookupFailureTemplate        = "resolve destination project for %s: %v"
	repositoryTransferFailureTemplate      = "transfer repository %s: %v"
	repositoryEmptyWarningTemplateConstant = "repository %s is empty, nothing to transfer"
	repositoryMigratedMessageConstant      = "Repository migrated"
	transferErrorJoinSeparatorConstant     = "; "
	logFieldRepositoryPathConstant         = "repository_path"
)

// Repository pairs a source project with its git content attributes.
type Repository struct {
	ProjectID         int64
	Name              string
	PathWithNamespace string
	HTTPURLToRepo     string
	DefaultBranch     string
	EmptyRepo         bool
	SizeBytes         int64
	LFSEnabled        bool
}

// RepositoryTransferrer moves git content between instances.
type RepositoryTransferrer interface {
	Transfer(executionContext context.Context, request transfer.Request) (transfer.Outcome, error)
}

// RepositoryStrategy migrates git repository content for projects that were
// mapped during the project phase. A missing project mapping is a dependency
// violation and fails the repository.
type RepositoryStrategy struct {
	dependencies StrategyDependencies
	transferrer  RepositoryTransferrer
}

// NewRepositoryStrategy validates dependencies and constructs a
// RepositoryStrategy.
func NewRepositoryStrategy(dependencies StrategyDependencies, transferrer RepositoryTransferrer) (*RepositoryStrategy, error) {
	validatedDependencies, validationError := dependencies.validate()
	if validationError != nil {
		return nil, validationError
	}
	if transferrer == nil {
		return nil, ErrStrategyNotConfigured
	}
	return &RepositoryStrategy{dependencies: validatedDependencies, transferrer: transferrer}, nil
}

// Kind identifies the entities this strategy migrates.
func (strategy *RepositoryStrategy) Kind() registry.EntityKind {
	return registry.KindRepository
}

// EntityIdentifier returns a stable display name for one repository.
func (strategy *RepositoryStrategy) EntityIdentifier(sourceRepository Repository) string {
	return sourceRepository.PathWithNamespace
}

// ValidatePrerequisites probes destination connectivity and credentials.
func (strategy *RepositoryStrategy) ValidatePrerequisites(executionContext context.Context) error {
	if probeError := strategy.dependencies.Destination.TestConnection(executionContext); probeError != nil {
		return fmt.Errorf(prerequisiteProbeFailureTemplateConst, probeError)
	}
	return nil
}

// MigrateOne transfers one repository's git content and translates the
// transfer outcome into a Result, preserving content counters as metadata.
func (strategy *RepositoryStrategy) MigrateOne(executionContext context.Context, sourceRepository Repository) Result {
	migrationResult := newResult(registry.KindRepository, sourceRepository.ProjectID, sourceRepository.PathWithNamespace, sourceRepository)

	destinationProjectID, projectMapped := strategy.dependencies.IdentityMap.Lookup(registry.KindProject, sourceRepository.ProjectID)
	if !projectMapped {
		return completeFailed(migrationResult, fmt.Sprintf(repositoryDependencyTemplateConstant, sourceRepository.PathWithNamespace, sourceRepository.ProjectID))
	}

	if sourceRepository.EmptyRepo {
		migrationResult.Warnings = append(migrationResult.Warnings, fmt.Sprintf(repositoryEmptyWarningTemplateConstant, sourceRepository.PathWithNamespace))
		strategy.dependencies.IdentityMap.Put(registry.KindRepository, sourceRepository.ProjectID, destinationProjectID)
		return completeSucceeded(migrationResult)
	}

	if strategy.dependencies.DryRun {
		return completeDryRun(migrationResult)
	}

	destinationProject, lookupError := strategy.dependencies.Destination.GetProject(executionContext, destinationProjectID)
	if lookupError != nil {
		return completeFailed(migrationResult, fmt.Sprintf(repositoryLookupFailureTemplate, sourceRepository.PathWithNamespace, lookupError))
	}

	transferOutcome, transferError := strategy.transferrer.Transfer(executionContext, transfer.Request{
		SourceCloneURL:     sourceRepository.HTTPURLToRepo,
		DestinationPushURL: destinationProject.HTTPURLToRepo,
		DefaultBranch:      sourceRepository.DefaultBranch,
		LFSEnabled:         sourceRepository.LFSEnabled,
	})
	if transferError != nil {
		return completeFailed(migrationResult, fmt.Sprintf(repositoryTransferFailureTemplate, sourceRepository.PathWithNamespace, transferError))
	}

	migrationResult = migrationResult.WithMetadata(MetadataKeyBranchesMigrated, transferOutcome.BranchesMigrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeyTagsMigrated, transferOutcome.TagsMigrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeyCommitsMigrated, transferOutcome.CommitsMigrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeyLFSObjectsMigrated, transferOutcome.LFSObjectsMigrated)
	migrationResult = migrationResult.WithMetadata(MetadataKeySizeBytes, transferOutcome.SizeBytes)
	migrationResult.Warnings = append(migrationResult.Warnings, transferOutcome.Warnings...)

	if !transferOutcome.Success {
		return completeFailed(migrationResult, fmt.Sprintf(repositoryTransferFailureTemplate, sourceRepository.PathWithNamespace, strings.Join(transferOutcome.Errors, transferErrorJoinSeparatorConstant)))
	}

	strategy.dependencies.IdentityMap.Put(registry.KindRepository, sourceRepository.ProjectID, destinationProjectID)

	strategy.dependencies.Logger.Debug(repositoryMigratedMessageConstant, zap.String(logFieldRepositoryPathConstant, sourceRepository.PathWithNamespace))
	return completeSucceeded(migrationResult)
}
