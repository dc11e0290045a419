package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	strategyNilDependencyMessageConstant  = "strategy dependencies not configured"
	temporaryPasswordConstant             = "TempPassword123!"
	blockedPendingApprovalStateConstant   = "blocked_pending_approval"
	botUsernameFragmentConstant           = "_bot"
	userCreateFailureTemplateConstant     = "create user %s: %v"
	userSearchFailureTemplateConstant     = "search destination for user %s: %v"
	userMigratedMessageConstant           = "User migrated"
	userSkippedMessageConstant            = "User skipped"
	logFieldUsernameConstant              = "username"
	logFieldSkipReasonConstant            = "skip_reason"
	emailAddressSeparatorConstant         = "@"
	prerequisiteProbeFailureTemplateConst = "destination probe failed: %w"
)

// System account usernames that must never be re-created on a destination.
var systemAccountUsernames = map[string]bool{
	"root":        true,
	"ghost":       true,
	"ghost-user":  true,
	"support-bot": true,
	"alert-bot":   true,
}

// ErrStrategyNotConfigured reports missing strategy collaborators.
var ErrStrategyNotConfigured = errors.New(strategyNilDependencyMessageConstant)

// StrategyDependencies carries the collaborators shared by every strategy.
type StrategyDependencies struct {
	Source      SourceAPI
	Destination DestinationAPI
	IdentityMap *registry.Registry
	Classifier  ConflictClassifier
	Logger      *zap.Logger
	DryRun      bool
}

func (dependencies StrategyDependencies) validate() (StrategyDependencies, error) {
	if dependencies.Source == nil || dependencies.Destination == nil || dependencies.IdentityMap == nil || dependencies.Classifier == nil {
		return dependencies, ErrStrategyNotConfigured
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	return dependencies, nil
}

// UserStrategy migrates user accounts. Existence checks run against the
// destination so creation stays idempotent across repeated runs.
type UserStrategy struct {
	dependencies StrategyDependencies
}

// NewUserStrategy validates dependencies and constructs a UserStrategy.
func NewUserStrategy(dependencies StrategyDependencies) (*UserStrategy, error) {
	validatedDependencies, validationError := dependencies.validate()
	if validationError != nil {
		return nil, validationError
	}
	return &UserStrategy{dependencies: validatedDependencies}, nil
}

// Kind identifies the entities this strategy migrates.
func (strategy *UserStrategy) Kind() registry.EntityKind {
	return registry.KindUser
}

// EntityIdentifier returns a stable display name for one user.
func (strategy *UserStrategy) EntityIdentifier(sourceUser gitlab.User) string {
	return sourceUser.Username
}

// ValidatePrerequisites probes destination connectivity and credentials.
func (strategy *UserStrategy) ValidatePrerequisites(executionContext context.Context) error {
	if _, probeError := strategy.dependencies.Destination.CurrentUser(executionContext); probeError != nil {
		return fmt.Errorf(prerequisiteProbeFailureTemplateConst, probeError)
	}
	return nil
}

// MigrateOne migrates a single user and never returns an error; every
// failure is captured in the Result.
func (strategy *UserStrategy) MigrateOne(executionContext context.Context, sourceUser gitlab.User) Result {
	migrationResult := newResult(registry.KindUser, sourceUser.ID, sourceUser.Username, sourceUser)

	existingUser, lookupError := strategy.findExistingUser(executionContext, sourceUser)
	if lookupError != nil {
		return completeFailed(migrationResult, fmt.Sprintf(userSearchFailureTemplateConstant, sourceUser.Username, lookupError))
	}
	if existingUser != nil {
		strategy.dependencies.IdentityMap.Put(registry.KindUser, sourceUser.ID, existingUser.ID)
		migrationResult.DestinationSnapshot = *existingUser
		migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, existingUser.ID)
		return completeSkipped(migrationResult, SkipReasonAlreadyExists)
	}

	if skipReason, shouldSkip := classifyUserForSkip(sourceUser); shouldSkip {
		strategy.dependencies.Logger.Debug(
			userSkippedMessageConstant,
			zap.String(logFieldUsernameConstant, sourceUser.Username),
			zap.String(logFieldSkipReasonConstant, skipReason),
		)
		return completeSkipped(migrationResult, skipReason)
	}

	if strategy.dependencies.DryRun {
		return completeDryRun(migrationResult)
	}

	createdUser, createError := strategy.dependencies.Destination.CreateUser(executionContext, gitlab.CreateUserRequest{
		Email:               sourceUser.Email,
		Username:            sourceUser.Username,
		Name:                sourceUser.Name,
		Password:            temporaryPasswordConstant,
		ForceRandomPassword: true,
		SkipConfirmation:    true,
		Admin:               sourceUser.IsAdmin,
	})
	if createError != nil {
		if strategy.dependencies.Classifier.Classify(createError) == ConflictAlreadyExists {
			return completeSkipped(migrationResult, SkipReasonAlreadyExists)
		}
		return completeFailed(migrationResult, fmt.Sprintf(userCreateFailureTemplateConstant, sourceUser.Username, createError))
	}

	strategy.dependencies.IdentityMap.Put(registry.KindUser, sourceUser.ID, createdUser.ID)
	migrationResult.DestinationSnapshot = createdUser
	migrationResult = migrationResult.WithMetadata(MetadataKeyDestinationIdentifierName, createdUser.ID)

	strategy.dependencies.Logger.Debug(userMigratedMessageConstant, zap.String(logFieldUsernameConstant, sourceUser.Username))
	return completeSucceeded(migrationResult)
}

// findExistingUser searches the destination by email first, then by exact
// username. A nil user with a nil error means the user does not exist yet.
func (strategy *UserStrategy) findExistingUser(executionContext context.Context, sourceUser gitlab.User) (*gitlab.User, error) {
	if len(sourceUser.Email) > 0 {
		emailMatches, emailSearchError := strategy.dependencies.Destination.SearchUsersByEmail(executionContext, sourceUser.Email)
		if emailSearchError != nil {
			return nil, emailSearchError
		}
		for matchIndex := range emailMatches {
			if strings.EqualFold(emailMatches[matchIndex].Email, sourceUser.Email) {
				return &emailMatches[matchIndex], nil
			}
		}
	}

	usernameMatches, usernameSearchError := strategy.dependencies.Destination.SearchUsersByUsername(executionContext, sourceUser.Username)
	if usernameSearchError != nil {
		return nil, usernameSearchError
	}
	for matchIndex := range usernameMatches {
		if strings.EqualFold(usernameMatches[matchIndex].Username, sourceUser.Username) {
			return &usernameMatches[matchIndex], nil
		}
	}

	return nil, nil
}

// classifyUserForSkip applies the system and bot account predicate.
func classifyUserForSkip(sourceUser gitlab.User) (string, bool) {
	loweredUsername := strings.ToLower(sourceUser.Username)
	if sourceUser.Bot || systemAccountUsernames[loweredUsername] || strings.Contains(loweredUsername, botUsernameFragmentConstant) {
		return SkipReasonSystemOrBotUser, true
	}
	if sourceUser.State == blockedPendingApprovalStateConstant {
		return SkipReasonSystemOrBotUser, true
	}
	if len(sourceUser.Email) == 0 || !strings.Contains(sourceUser.Email, emailAddressSeparatorConstant) {
		return SkipReasonSystemOrBotUser, true
	}
	return "", false
}

func newResult(entityKind registry.EntityKind, entityID int64, entityName string, sourceSnapshot any) Result {
	return Result{
		EntityKind:     entityKind,
		EntityID:       entityID,
		EntityName:     entityName,
		Status:         StatusInProgress,
		StartedAt:      time.Now().UTC(),
		SourceSnapshot: sourceSnapshot,
		Metadata:       map[string]any{},
	}
}

func completeSucceeded(migrationResult Result) Result {
	migrationResult.Status = StatusCompleted
	migrationResult.Success = true
	migrationResult.CompletedAt = time.Now().UTC()
	return migrationResult
}

func completeSkipped(migrationResult Result, skipReason string) Result {
	migrationResult = migrationResult.WithMetadata(MetadataKeySkipReason, skipReason)
	migrationResult.Status = StatusSkipped
	migrationResult.Success = true
	migrationResult.CompletedAt = time.Now().UTC()
	return migrationResult
}

func completeFailed(migrationResult Result, failureMessage string) Result {
	migrationResult.Status = StatusFailed
	migrationResult.Success = false
	migrationResult.ErrorMessage = failureMessage
	migrationResult.CompletedAt = time.Now().UTC()
	return migrationResult
}

func completeDryRun(migrationResult Result) Result {
	migrationResult = migrationResult.WithMetadata(MetadataKeyDryRun, true)
	return completeSucceeded(migrationResult)
}
