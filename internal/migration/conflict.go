package migration

import (
	"strings"

	"github.com/temirov/glmigrate/internal/gitlab"
)

// ConflictKind is the taxonomy produced by error classification.
type ConflictKind string

// Conflict kinds.
const (
	ConflictAlreadyExists       ConflictKind = "already_exists"
	ConflictDisk                ConflictKind = "disk_conflict"
	ConflictInheritedPermission ConflictKind = "inherited_permission"
	ConflictUnknown             ConflictKind = "unknown"
)

// ConflictClassifier maps destination error payloads into the conflict
// taxonomy that drives retry and skip decisions.
type ConflictClassifier interface {
	Classify(classifiedError error) ConflictKind
}

// Conflict field names inspected for existence collisions.
var conflictFieldNames = []string{"path", "name", "base", "username", "email", "route"}

// Substrings indicating the resource already exists at the API level.
var alreadyExistsPatterns = []string{
	"has already been taken",
	"already been taken",
	"already exists",
	"name already exists",
}

// Substrings indicating a storage level repository path collision. These come
// from server abort messages and are not visible through API existence checks.
var diskConflictPatterns = []string{
	"already a repository with that name on disk",
	"repository with that name already exists on disk",
	"uncaught throw :abort",
	"failed to create repository",
	"already exists on disk",
}

// Substrings indicating a rejected change to an inherited membership.
var inheritedPermissionPatterns = []string{
	"inherited membership",
	"should be greater than or equal to",
	"access level should be greater",
}

// PatternClassifier classifies errors by matching known destination message
// patterns. The matching rules live here so the retry logic that consumes the
// classification stays independent of the concrete strings.
type PatternClassifier struct{}

// NewPatternClassifier constructs a PatternClassifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify inspects structured field errors first, then the flattened message
// text. Disk conflicts take precedence over plain existence collisions
// because they require the retry-with-new-path handling.
func (classifier *PatternClassifier) Classify(classifiedError error) ConflictKind {
	if classifiedError == nil {
		return ConflictUnknown
	}

	combinedMessage := strings.ToLower(classifiedError.Error())
	fieldErrors := map[string][]string{}
	apiFailure, isAPIError := gitlab.AsAPIError(classifiedError)
	if isAPIError {
		combinedMessage = strings.ToLower(apiFailure.CombinedMessage())
		fieldErrors = apiFailure.FieldErrors
	}

	if matchesAnyPattern(combinedMessage, diskConflictPatterns) {
		return ConflictDisk
	}
	if matchesAnyPattern(combinedMessage, inheritedPermissionPatterns) {
		return ConflictInheritedPermission
	}

	for _, fieldName := range conflictFieldNames {
		for _, fieldMessage := range fieldErrors[fieldName] {
			loweredFieldMessage := strings.ToLower(fieldMessage)
			if strings.Contains(loweredFieldMessage, "taken") || strings.Contains(loweredFieldMessage, "already") {
				return ConflictAlreadyExists
			}
		}
	}

	if matchesAnyPattern(combinedMessage, alreadyExistsPatterns) {
		return ConflictAlreadyExists
	}

	// 409 bodies are instance-localized, so the status code is the only
	// reliable existence signal when no message pattern matched.
	if isAPIError && apiFailure.IsConflict() {
		return ConflictAlreadyExists
	}

	return ConflictUnknown
}

func matchesAnyPattern(messageText string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(messageText, pattern) {
			return true
		}
	}
	return false
}
