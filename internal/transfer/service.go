package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant = "git executor not configured"
	loggerNotConfiguredMessageConstant   = "logger not configured"
	workspacePatternConstant             = "glmigrate-repo-*"
	oauthUsernameConstant                = "oauth2"
	cloneFailureTemplateConstant         = "mirror clone failed: %v"
	pushFailureTemplateConstant          = "mirror push failed: %v"
	lfsFetchWarningTemplateConstant      = "lfs fetch failed: %v"
	lfsPushWarningTemplateConstant       = "lfs push failed: %v"
	workspaceFailureTemplateConstant     = "create transfer workspace: %w"
	invalidURLTemplateConstant           = "parse repository url: %w"
	transferCompletedMessageConstant     = "Repository transferred"
	logFieldSourceURLConstant            = "source_url"
	logFieldBranchCountConstant          = "branches"
	logFieldTagCountConstant             = "tags"
	gitCloneSubcommandConstant           = "clone"
	gitPushSubcommandConstant            = "push"
	gitMirrorFlagConstant                = "--mirror"
	gitForEachRefSubcommandConstant      = "for-each-ref"
	gitRefNameFormatFlagConstant         = "--format=%(refname)"
	gitBranchRefPrefixConstant           = "refs/heads"
	gitTagRefPrefixConstant              = "refs/tags"
	gitRevListSubcommandConstant         = "rev-list"
	gitAllFlagConstant                   = "--all"
	gitCountFlagConstant                 = "--count"
	gitCountObjectsSubcommandConstant    = "count-objects"
	gitVerboseFlagConstant               = "-v"
	gitSizePackFieldPrefixConstant       = "size-pack:"
	lfsFetchSubcommandConstant           = "fetch"
	lfsPushSubcommandConstant            = "push"
	lfsAllFlagConstant                   = "--all"
	bytesPerKibibyteConstant             = 1024
)

// Construction errors.
var (
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	ErrLoggerNotConfigured   = errors.New(loggerNotConfiguredMessageConstant)
)

// Request identifies the repository content to move.
type Request struct {
	SourceCloneURL     string
	DestinationPushURL string
	DefaultBranch      string
	LFSEnabled         bool
}

// Outcome reports what a transfer moved. Errors are fatal to the transfer,
// warnings are not.
type Outcome struct {
	Success            bool
	BranchesMigrated   int
	TagsMigrated       int
	CommitsMigrated    int
	LFSObjectsMigrated int
	SizeBytes          int64
	Errors             []string
	Warnings           []string
}

// GitExecutor runs git and git-lfs commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitLFS(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ServiceDependencies carries the collaborators for NewService.
type ServiceDependencies struct {
	Executor         GitExecutor
	Logger           *zap.Logger
	SourceToken      string
	DestinationToken string
	WorkspaceRoot    string
}

// Service performs repository transfers through mirror clone and push.
type Service struct {
	executor         GitExecutor
	logger           *zap.Logger
	sourceToken      string
	destinationToken string
	workspaceRoot    string
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	workspaceRoot := dependencies.WorkspaceRoot
	if len(workspaceRoot) == 0 {
		workspaceRoot = os.TempDir()
	}
	return &Service{
		executor:         dependencies.Executor,
		logger:           dependencies.Logger,
		sourceToken:      dependencies.SourceToken,
		destinationToken: dependencies.DestinationToken,
		workspaceRoot:    workspaceRoot,
	}, nil
}

// Transfer mirrors the source repository into the destination. A returned
// error means the transfer could not start; content level failures are
// reported through the Outcome.
func (service *Service) Transfer(executionContext context.Context, request Request) (Outcome, error) {
	outcome := Outcome{}

	authenticatedSourceURL, sourceURLError := AuthenticatedURL(request.SourceCloneURL, service.sourceToken)
	if sourceURLError != nil {
		return outcome, sourceURLError
	}
	authenticatedDestinationURL, destinationURLError := AuthenticatedURL(request.DestinationPushURL, service.destinationToken)
	if destinationURLError != nil {
		return outcome, destinationURLError
	}

	workspaceDirectory, workspaceError := os.MkdirTemp(service.workspaceRoot, workspacePatternConstant)
	if workspaceError != nil {
		return outcome, fmt.Errorf(workspaceFailureTemplateConstant, workspaceError)
	}
	defer func() {
		_ = os.RemoveAll(workspaceDirectory)
	}()

	cloneDetails := execshell.CommandDetails{
		Arguments:        []string{gitCloneSubcommandConstant, gitMirrorFlagConstant, authenticatedSourceURL, workspaceDirectory},
		WorkingDirectory: service.workspaceRoot,
	}
	if _, cloneError := service.executor.ExecuteGit(executionContext, cloneDetails); cloneError != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf(cloneFailureTemplateConstant, cloneError))
		return outcome, nil
	}

	outcome.BranchesMigrated = service.countRefs(executionContext, workspaceDirectory, gitBranchRefPrefixConstant)
	outcome.TagsMigrated = service.countRefs(executionContext, workspaceDirectory, gitTagRefPrefixConstant)
	outcome.CommitsMigrated = service.countCommits(executionContext, workspaceDirectory)
	outcome.SizeBytes = service.packedSizeBytes(executionContext, workspaceDirectory)

	if request.LFSEnabled {
		lfsFetchDetails := execshell.CommandDetails{
			Arguments:        []string{lfsFetchSubcommandConstant, lfsAllFlagConstant},
			WorkingDirectory: workspaceDirectory,
		}
		if _, lfsFetchError := service.executor.ExecuteGitLFS(executionContext, lfsFetchDetails); lfsFetchError != nil {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf(lfsFetchWarningTemplateConstant, lfsFetchError))
		}
	}

	pushDetails := execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, gitMirrorFlagConstant, authenticatedDestinationURL},
		WorkingDirectory: workspaceDirectory,
	}
	if _, pushError := service.executor.ExecuteGit(executionContext, pushDetails); pushError != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf(pushFailureTemplateConstant, pushError))
		return outcome, nil
	}

	if request.LFSEnabled {
		lfsPushDetails := execshell.CommandDetails{
			Arguments:        []string{lfsPushSubcommandConstant, lfsAllFlagConstant, authenticatedDestinationURL},
			WorkingDirectory: workspaceDirectory,
		}
		lfsPushResult, lfsPushError := service.executor.ExecuteGitLFS(executionContext, lfsPushDetails)
		if lfsPushError != nil {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf(lfsPushWarningTemplateConstant, lfsPushError))
		} else {
			outcome.LFSObjectsMigrated = countNonEmptyLines(lfsPushResult.StandardOutput)
		}
	}

	outcome.Success = true

	service.logger.Debug(
		transferCompletedMessageConstant,
		zap.String(logFieldSourceURLConstant, request.SourceCloneURL),
		zap.Int(logFieldBranchCountConstant, outcome.BranchesMigrated),
		zap.Int(logFieldTagCountConstant, outcome.TagsMigrated),
	)

	return outcome, nil
}

func (service *Service) countRefs(executionContext context.Context, workspaceDirectory string, refPrefix string) int {
	refDetails := execshell.CommandDetails{
		Arguments:        []string{gitForEachRefSubcommandConstant, gitRefNameFormatFlagConstant, refPrefix},
		WorkingDirectory: workspaceDirectory,
	}
	refResult, refError := service.executor.ExecuteGit(executionContext, refDetails)
	if refError != nil {
		return 0
	}
	return countNonEmptyLines(refResult.StandardOutput)
}

func (service *Service) countCommits(executionContext context.Context, workspaceDirectory string) int {
	revListDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevListSubcommandConstant, gitAllFlagConstant, gitCountFlagConstant},
		WorkingDirectory: workspaceDirectory,
	}
	revListResult, revListError := service.executor.ExecuteGit(executionContext, revListDetails)
	if revListError != nil {
		return 0
	}
	commitCount, parseError := strconv.Atoi(strings.TrimSpace(revListResult.StandardOutput))
	if parseError != nil {
		return 0
	}
	return commitCount
}

// packedSizeBytes reports the pack size from git count-objects, converted
// from the kibibyte figure git prints.
func (service *Service) packedSizeBytes(executionContext context.Context, workspaceDirectory string) int64 {
	countObjectsDetails := execshell.CommandDetails{
		Arguments:        []string{gitCountObjectsSubcommandConstant, gitVerboseFlagConstant},
		WorkingDirectory: workspaceDirectory,
	}
	countObjectsResult, countObjectsError := service.executor.ExecuteGit(executionContext, countObjectsDetails)
	if countObjectsError != nil {
		return 0
	}

	for _, outputLine := range strings.Split(countObjectsResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if !strings.HasPrefix(trimmedLine, gitSizePackFieldPrefixConstant) {
			continue
		}
		sizeField := strings.TrimSpace(strings.TrimPrefix(trimmedLine, gitSizePackFieldPrefixConstant))
		sizeKibibytes, parseError := strconv.ParseInt(sizeField, 10, 64)
		if parseError != nil {
			return 0
		}
		return sizeKibibytes * bytesPerKibibyteConstant
	}
	return 0
}

// AuthenticatedURL embeds token credentials into an HTTP clone URL.
func AuthenticatedURL(rawRepositoryURL string, accessToken string) (string, error) {
	parsedURL, parseError := url.Parse(rawRepositoryURL)
	if parseError != nil {
		return "", fmt.Errorf(invalidURLTemplateConstant, parseError)
	}
	if len(accessToken) > 0 {
		parsedURL.User = url.UserPassword(oauthUsernameConstant, accessToken)
	}
	return parsedURL.String(), nil
}

func countNonEmptyLines(outputText string) int {
	lineCount := 0
	for _, outputLine := range strings.Split(outputText, "\n") {
		if len(strings.TrimSpace(outputLine)) > 0 {
			lineCount++
		}
	}
	return lineCount
}
