package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	memberMigratorNilDependencyMessage   = "member migrator dependencies not configured"
	memberOwnerUnmappedWarningTemplate   = "member %s skipped: owning user %d has no destination mapping"
	memberListFailureTemplateConstant    = "list members of %s %d: %v"
	memberAddFailureTemplateConstant     = "add member %s: %v"
	memberUpdateFailureTemplateConstant  = "raise access for member %s: %v"
	membersMigratedMessageConstant       = "Members migrated"
	logFieldMemberCollectionConstant     = "collection"
	logFieldMemberOwnerConstant          = "owner_id"
	logFieldMembersMigratedCountConstant = "migrated"
	logFieldMembersSkippedCountConstant  = "skipped"
)

// ErrMemberMigratorNotConfigured reports missing migrator collaborators.
var ErrMemberMigratorNotConfigured = errors.New(memberMigratorNilDependencyMessage)

// MemberOutcome aggregates one owner's membership migration.
type MemberOutcome struct {
	Migrated int
	Skipped  int
	Warnings []string
}

// MemberMigrator re-applies source memberships on a destination group or
// project. The routine is shared by the group and project strategies.
type MemberMigrator struct {
	source      SourceAPI
	destination DestinationAPI
	identityMap *registry.Registry
	classifier  ConflictClassifier
	logger      *zap.Logger
	batchSize   int
	dryRun      bool
}

// MemberMigratorDependencies carries the collaborators for NewMemberMigrator.
type MemberMigratorDependencies struct {
	Source      SourceAPI
	Destination DestinationAPI
	IdentityMap *registry.Registry
	Classifier  ConflictClassifier
	Logger      *zap.Logger
	BatchSize   int
	DryRun      bool
}

// NewMemberMigrator validates dependencies and constructs a MemberMigrator.
func NewMemberMigrator(dependencies MemberMigratorDependencies) (*MemberMigrator, error) {
	if dependencies.Source == nil || dependencies.Destination == nil || dependencies.IdentityMap == nil || dependencies.Classifier == nil {
		return nil, ErrMemberMigratorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := dependencies.BatchSize
	if batchSize <= 0 {
		batchSize = defaultMemberBatchSizeConstant
	}
	return &MemberMigrator{
		source:      dependencies.Source,
		destination: dependencies.Destination,
		identityMap: dependencies.IdentityMap,
		classifier:  dependencies.Classifier,
		logger:      logger,
		batchSize:   batchSize,
		dryRun:      dependencies.DryRun,
	}, nil
}

// MigrateMembers copies every member of the source owner onto the destination
// owner. Unmapped users are skipped with a warning; a rejected access change
// caused by an inherited higher grant counts as migrated.
func (migrator *MemberMigrator) MigrateMembers(
	executionContext context.Context,
	collection gitlab.MemberCollection,
	sourceOwnerID int64,
	destinationOwnerID int64,
) MemberOutcome {
	outcome := MemberOutcome{}

	sourceMembers, listError := migrator.source.ListMembers(executionContext, collection, sourceOwnerID)
	if listError != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf(memberListFailureTemplateConstant, collection, sourceOwnerID, listError))
		return outcome
	}

	outcomeMutex := sync.Mutex{}
	for batchStart := 0; batchStart < len(sourceMembers); batchStart += migrator.batchSize {
		batchEnd := batchStart + migrator.batchSize
		if batchEnd > len(sourceMembers) {
			batchEnd = len(sourceMembers)
		}

		memberWaitGroup := sync.WaitGroup{}
		for memberIndex := batchStart; memberIndex < batchEnd; memberIndex++ {
			memberWaitGroup.Add(1)
			go func(sourceMember gitlab.Member) {
				defer memberWaitGroup.Done()

				memberMigrated, memberWarning := migrator.migrateMember(executionContext, collection, destinationOwnerID, sourceMember)

				outcomeMutex.Lock()
				defer outcomeMutex.Unlock()
				if memberMigrated {
					outcome.Migrated++
				} else {
					outcome.Skipped++
				}
				if len(memberWarning) > 0 {
					outcome.Warnings = append(outcome.Warnings, memberWarning)
				}
			}(sourceMembers[memberIndex])
		}
		memberWaitGroup.Wait()
	}

	migrator.logger.Debug(
		membersMigratedMessageConstant,
		zap.String(logFieldMemberCollectionConstant, string(collection)),
		zap.Int64(logFieldMemberOwnerConstant, destinationOwnerID),
		zap.Int(logFieldMembersMigratedCountConstant, outcome.Migrated),
		zap.Int(logFieldMembersSkippedCountConstant, outcome.Skipped),
	)

	return outcome
}

// migrateMember applies one membership. The boolean reports whether the
// member counts as migrated.
func (migrator *MemberMigrator) migrateMember(
	executionContext context.Context,
	collection gitlab.MemberCollection,
	destinationOwnerID int64,
	sourceMember gitlab.Member,
) (bool, string) {
	destinationUserID, userMapped := migrator.identityMap.Lookup(registry.KindUser, sourceMember.ID)
	if !userMapped {
		return false, fmt.Sprintf(memberOwnerUnmappedWarningTemplate, sourceMember.Username, sourceMember.ID)
	}

	if migrator.dryRun {
		return true, ""
	}

	existingMember, findError := migrator.destination.FindMember(executionContext, collection, destinationOwnerID, destinationUserID)
	if findError == nil {
		if existingMember.AccessLevel >= sourceMember.AccessLevel {
			return true, ""
		}

		_, updateError := migrator.destination.UpdateMemberAccess(executionContext, collection, destinationOwnerID, destinationUserID, sourceMember.AccessLevel)
		if updateError == nil {
			return true, ""
		}
		if migrator.classifier.Classify(updateError) == ConflictInheritedPermission {
			return true, ""
		}
		return false, fmt.Sprintf(memberUpdateFailureTemplateConstant, sourceMember.Username, updateError)
	}

	if !gitlab.IsNotFoundError(findError) {
		return false, fmt.Sprintf(memberAddFailureTemplateConstant, sourceMember.Username, findError)
	}

	_, addError := migrator.destination.AddMember(executionContext, collection, destinationOwnerID, gitlab.AddMemberRequest{
		UserID:      destinationUserID,
		AccessLevel: sourceMember.AccessLevel,
	})
	if addError == nil {
		return true, ""
	}
	classifiedConflict := migrator.classifier.Classify(addError)
	if classifiedConflict == ConflictAlreadyExists || classifiedConflict == ConflictInheritedPermission {
		return true, ""
	}
	return false, fmt.Sprintf(memberAddFailureTemplateConstant, sourceMember.Username, addError)
}
