package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/execshell"
	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
	"github.com/temirov/glmigrate/internal/transfer"
)

const (
	engineSourceMissingMessageConstant      = "source instance url and token are required"
	engineDestinationMissingMessageConstant = "destination instance url and token are required"
	connectivityFailureTemplateConstant     = "%s instance unreachable: %w"
	sourceInstanceLabelConstant             = "source"
	destinationInstanceLabelConstant        = "destination"
	engineBuildFailureTemplateConstant      = "build migration engine: %w"
)

// Engine construction errors.
var (
	ErrSourceNotConfigured      = errors.New(engineSourceMissingMessageConstant)
	ErrDestinationNotConfigured = errors.New(engineDestinationMissingMessageConstant)
)

// InstanceStatus reports the reachability and entity counts of one instance.
type InstanceStatus struct {
	Label     string
	Reachable bool
	Error     string
	Users     int
	Groups    int
	Projects  int
}

// Engine assembles clients, strategies, and the orchestrator for one run.
type Engine struct {
	configuration CommandConfiguration
	logger        *zap.Logger
	source        *gitlab.Client
	destination   *gitlab.Client
}

// NewEngine validates the configuration and constructs the API clients.
func NewEngine(configuration CommandConfiguration, logger *zap.Logger) (*Engine, error) {
	sanitizedConfiguration := configuration.Sanitize()
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(sanitizedConfiguration.Source.URL) == 0 || len(sanitizedConfiguration.Source.Token) == 0 {
		return nil, ErrSourceNotConfigured
	}
	if len(sanitizedConfiguration.Destination.URL) == 0 || len(sanitizedConfiguration.Destination.Token) == 0 {
		return nil, ErrDestinationNotConfigured
	}

	sourceClient, sourceClientError := gitlab.NewClient(gitlab.ClientOptions{
		BaseURL:           sanitizedConfiguration.Source.URL,
		Token:             sanitizedConfiguration.Source.Token,
		RequestsPerSecond: sanitizedConfiguration.Source.RequestsPerSecond,
		TransportRetries:  sanitizedConfiguration.Source.TransportRetries,
		Logger:            logger,
	})
	if sourceClientError != nil {
		return nil, fmt.Errorf(engineBuildFailureTemplateConstant, sourceClientError)
	}

	destinationClient, destinationClientError := gitlab.NewClient(gitlab.ClientOptions{
		BaseURL:           sanitizedConfiguration.Destination.URL,
		Token:             sanitizedConfiguration.Destination.Token,
		RequestsPerSecond: sanitizedConfiguration.Destination.RequestsPerSecond,
		TransportRetries:  sanitizedConfiguration.Destination.TransportRetries,
		Logger:            logger,
	})
	if destinationClientError != nil {
		return nil, fmt.Errorf(engineBuildFailureTemplateConstant, destinationClientError)
	}

	return &Engine{
		configuration: sanitizedConfiguration,
		logger:        logger,
		source:        sourceClient,
		destination:   destinationClient,
	}, nil
}

// Migrate executes a full run and returns its summary.
func (engine *Engine) Migrate(executionContext context.Context, dryRun bool) (Summary, error) {
	orchestrator, buildError := engine.buildOrchestrator(dryRun)
	if buildError != nil {
		return Summary{}, fmt.Errorf(engineBuildFailureTemplateConstant, buildError)
	}
	return orchestrator.Run(executionContext)
}

// TestConnectivity probes both instances and returns the first failure.
func (engine *Engine) TestConnectivity(executionContext context.Context) error {
	if sourceError := engine.source.TestConnection(executionContext); sourceError != nil {
		return fmt.Errorf(connectivityFailureTemplateConstant, sourceInstanceLabelConstant, sourceError)
	}
	if destinationError := engine.destination.TestConnection(executionContext); destinationError != nil {
		return fmt.Errorf(connectivityFailureTemplateConstant, destinationInstanceLabelConstant, destinationError)
	}
	return nil
}

// Status reports reachability and entity counts for both instances.
func (engine *Engine) Status(executionContext context.Context) []InstanceStatus {
	return []InstanceStatus{
		instanceStatusOf(executionContext, sourceInstanceLabelConstant, engine.source),
		instanceStatusOf(executionContext, destinationInstanceLabelConstant, engine.destination),
	}
}

func instanceStatusOf(executionContext context.Context, instanceLabel string, client *gitlab.Client) InstanceStatus {
	instanceStatus := InstanceStatus{Label: instanceLabel}

	if connectivityError := client.TestConnection(executionContext); connectivityError != nil {
		instanceStatus.Error = connectivityError.Error()
		return instanceStatus
	}
	instanceStatus.Reachable = true

	if listedUsers, listError := client.ListUsers(executionContext); listError == nil {
		instanceStatus.Users = len(listedUsers)
	}
	if listedGroups, listError := client.ListGroups(executionContext); listError == nil {
		instanceStatus.Groups = len(listedGroups)
	}
	if listedProjects, listError := client.ListProjects(executionContext); listError == nil {
		instanceStatus.Projects = len(listedProjects)
	}

	return instanceStatus
}

// buildOrchestrator wires the identity map, classifier, strategies, and
// transfer service into an orchestrator for one run.
func (engine *Engine) buildOrchestrator(dryRun bool) (*Orchestrator, error) {
	migrationPlan := engine.configuration.BuildPlan(dryRun)
	identityMap := registry.NewRegistry()
	classifier := NewPatternClassifier()

	strategyDependencies := StrategyDependencies{
		Source:      engine.source,
		Destination: engine.destination,
		IdentityMap: identityMap,
		Classifier:  classifier,
		Logger:      engine.logger,
		DryRun:      migrationPlan.DryRun,
	}

	memberMigrator, memberMigratorError := NewMemberMigrator(MemberMigratorDependencies{
		Source:      engine.source,
		Destination: engine.destination,
		IdentityMap: identityMap,
		Classifier:  classifier,
		Logger:      engine.logger,
		BatchSize:   migrationPlan.MemberBatchSize,
		DryRun:      migrationPlan.DryRun,
	})
	if memberMigratorError != nil {
		return nil, memberMigratorError
	}

	userStrategy, userStrategyError := NewUserStrategy(strategyDependencies)
	if userStrategyError != nil {
		return nil, userStrategyError
	}

	groupStrategy, groupStrategyError := NewGroupStrategy(strategyDependencies, memberMigrator)
	if groupStrategyError != nil {
		return nil, groupStrategyError
	}

	retryPolicy := DefaultRetryPolicy()
	retryPolicy.MaxAttempts = engine.configuration.DiskConflictRetries
	projectStrategy, projectStrategyError := NewProjectStrategy(strategyDependencies, memberMigrator, retryPolicy)
	if projectStrategyError != nil {
		return nil, projectStrategyError
	}

	shellExecutor, shellExecutorError := execshell.NewShellExecutor(engine.logger, execshell.NewOSCommandRunner())
	if shellExecutorError != nil {
		return nil, shellExecutorError
	}

	transferService, transferServiceError := transfer.NewService(transfer.ServiceDependencies{
		Executor:         shellExecutor,
		Logger:           engine.logger,
		SourceToken:      engine.configuration.Source.Token,
		DestinationToken: engine.configuration.Destination.Token,
		WorkspaceRoot:    engine.configuration.WorkspaceRoot,
	})
	if transferServiceError != nil {
		return nil, transferServiceError
	}

	repositoryStrategy, repositoryStrategyError := NewRepositoryStrategy(strategyDependencies, transferService)
	if repositoryStrategyError != nil {
		return nil, repositoryStrategyError
	}

	return NewOrchestrator(OrchestratorDependencies{
		Plan:               migrationPlan,
		Source:             engine.source,
		UserStrategy:       userStrategy,
		GroupStrategy:      groupStrategy,
		ProjectStrategy:    projectStrategy,
		RepositoryStrategy: repositoryStrategy,
		Logger:             engine.logger,
	})
}
