package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

const (
	orchestratorNilDependencyMessage    = "orchestrator dependencies not configured"
	prerequisiteFailureTemplateConstant = "prerequisite validation for %s phase: %w"
	phaseFetchWarningTemplateConstant   = "fetch %s entities: %v"
	phaseEmptyMessageConstant           = "Phase has no entities, skipping"
	phaseStartedMessageConstant         = "Phase started"
	phaseCompletedMessageConstant       = "Phase completed"
	logFieldPhaseConstant               = "phase"
	logFieldPhaseEntityCountConstant    = "entity_count"
	logFieldPhaseResultCountConstant    = "result_count"
)

// PhaseState tracks one phase through the orchestration state machine.
type PhaseState string

// Phase states.
const (
	PhasePending   PhaseState = "pending"
	PhaseRunning   PhaseState = "running"
	PhaseCompleted PhaseState = "completed"
	PhaseFailed    PhaseState = "failed"
)

// ErrOrchestratorNotConfigured reports missing orchestrator collaborators.
var ErrOrchestratorNotConfigured = errors.New(orchestratorNilDependencyMessage)

// OrchestratorDependencies carries the collaborators for NewOrchestrator.
type OrchestratorDependencies struct {
	Plan               Plan
	Source             SourceAPI
	UserStrategy       Strategy[gitlab.User]
	GroupStrategy      Strategy[gitlab.Group]
	ProjectStrategy    Strategy[gitlab.Project]
	RepositoryStrategy Strategy[Repository]
	Logger             *zap.Logger
}

// Orchestrator drives the ordered phase sequence. Phases run strictly
// sequentially because each phase reads identity mappings written by all
// prior phases.
type Orchestrator struct {
	plan               Plan
	source             SourceAPI
	userStrategy       Strategy[gitlab.User]
	groupStrategy      Strategy[gitlab.Group]
	projectStrategy    Strategy[gitlab.Project]
	repositoryStrategy Strategy[Repository]
	logger             *zap.Logger

	stateMutex  sync.RWMutex
	phaseStates map[registry.EntityKind]PhaseState

	cachedProjects []gitlab.Project
}

// NewOrchestrator validates dependencies and constructs an Orchestrator.
func NewOrchestrator(dependencies OrchestratorDependencies) (*Orchestrator, error) {
	if dependencies.Source == nil ||
		dependencies.UserStrategy == nil ||
		dependencies.GroupStrategy == nil ||
		dependencies.ProjectStrategy == nil ||
		dependencies.RepositoryStrategy == nil {
		return nil, ErrOrchestratorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sanitizedPlan := dependencies.Plan.Sanitize()
	phaseStates := map[registry.EntityKind]PhaseState{}
	for _, phaseKind := range sanitizedPlan.ExecutionOrder {
		phaseStates[phaseKind] = PhasePending
	}

	return &Orchestrator{
		plan:               sanitizedPlan,
		source:             dependencies.Source,
		userStrategy:       dependencies.UserStrategy,
		groupStrategy:      dependencies.GroupStrategy,
		projectStrategy:    dependencies.ProjectStrategy,
		repositoryStrategy: dependencies.RepositoryStrategy,
		logger:             logger,
		phaseStates:        phaseStates,
	}, nil
}

// PhaseState returns the current state of one phase.
func (orchestrator *Orchestrator) PhaseState(phaseKind registry.EntityKind) PhaseState {
	orchestrator.stateMutex.RLock()
	defer orchestrator.stateMutex.RUnlock()
	return orchestrator.phaseStates[phaseKind]
}

func (orchestrator *Orchestrator) setPhaseState(phaseKind registry.EntityKind, phaseState PhaseState) {
	orchestrator.stateMutex.Lock()
	defer orchestrator.stateMutex.Unlock()
	orchestrator.phaseStates[phaseKind] = phaseState
}

// ValidatePrerequisites probes every enabled phase before any writes happen.
func (orchestrator *Orchestrator) ValidatePrerequisites(executionContext context.Context) error {
	for _, phaseKind := range orchestrator.plan.ExecutionOrder {
		if !orchestrator.plan.EnabledKinds[phaseKind] {
			continue
		}

		var validationError error
		switch phaseKind {
		case registry.KindUser:
			validationError = orchestrator.userStrategy.ValidatePrerequisites(executionContext)
		case registry.KindGroup:
			validationError = orchestrator.groupStrategy.ValidatePrerequisites(executionContext)
		case registry.KindProject:
			validationError = orchestrator.projectStrategy.ValidatePrerequisites(executionContext)
		case registry.KindRepository:
			validationError = orchestrator.repositoryStrategy.ValidatePrerequisites(executionContext)
		}
		if validationError != nil {
			return fmt.Errorf(prerequisiteFailureTemplateConstant, phaseKind, validationError)
		}
	}

	if connectivityError := orchestrator.source.TestConnection(executionContext); connectivityError != nil {
		return fmt.Errorf(prerequisiteFailureTemplateConstant, "source", connectivityError)
	}

	return nil
}

// Run validates prerequisites, executes every enabled phase in order, and
// builds the run summary. Per entity failures never abort the run; only
// prerequisite validation does.
func (orchestrator *Orchestrator) Run(executionContext context.Context) (Summary, error) {
	runStartedAt := time.Now().UTC()

	if validationError := orchestrator.ValidatePrerequisites(executionContext); validationError != nil {
		for _, phaseKind := range orchestrator.plan.ExecutionOrder {
			orchestrator.setPhaseState(phaseKind, PhaseFailed)
		}
		return BuildSummary(runStartedAt, time.Now().UTC(), nil), validationError
	}

	collectedResults := []Result{}
	for _, phaseKind := range orchestrator.plan.ExecutionOrder {
		if !orchestrator.plan.EnabledKinds[phaseKind] {
			continue
		}

		if contextError := executionContext.Err(); contextError != nil {
			orchestrator.setPhaseState(phaseKind, PhaseFailed)
			return BuildSummary(runStartedAt, time.Now().UTC(), collectedResults), contextError
		}

		orchestrator.setPhaseState(phaseKind, PhaseRunning)
		orchestrator.logger.Info(phaseStartedMessageConstant, zap.String(logFieldPhaseConstant, string(phaseKind)))

		phaseResults := orchestrator.runPhase(executionContext, phaseKind)
		collectedResults = append(collectedResults, phaseResults...)

		orchestrator.setPhaseState(phaseKind, PhaseCompleted)
		orchestrator.logger.Info(
			phaseCompletedMessageConstant,
			zap.String(logFieldPhaseConstant, string(phaseKind)),
			zap.Int(logFieldPhaseResultCountConstant, len(phaseResults)),
		)
	}

	return BuildSummary(runStartedAt, time.Now().UTC(), collectedResults), nil
}

func (orchestrator *Orchestrator) runPhase(executionContext context.Context, phaseKind registry.EntityKind) []Result {
	switch phaseKind {
	case registry.KindUser:
		return fetchAndSchedule(orchestrator, executionContext, phaseKind, orchestrator.source.ListUsers, orchestrator.userStrategy)
	case registry.KindGroup:
		return fetchAndSchedule(orchestrator, executionContext, phaseKind, orchestrator.source.ListGroups, orchestrator.groupStrategy)
	case registry.KindProject:
		return fetchAndSchedule(orchestrator, executionContext, phaseKind, orchestrator.listProjectsCached, orchestrator.projectStrategy)
	case registry.KindRepository:
		return fetchAndSchedule(orchestrator, executionContext, phaseKind, orchestrator.listRepositories, orchestrator.repositoryStrategy)
	}
	return nil
}

// fetchAndSchedule loads one phase's source entities and runs them through
// the batch scheduler. Fetch failures skip the phase with a log entry.
func fetchAndSchedule[Entity any](
	orchestrator *Orchestrator,
	executionContext context.Context,
	phaseKind registry.EntityKind,
	fetchEntities func(context.Context) ([]Entity, error),
	strategy Strategy[Entity],
) []Result {
	phaseEntities, fetchError := fetchEntities(executionContext)
	if fetchError != nil {
		orchestrator.logger.Warn(
			fmt.Sprintf(phaseFetchWarningTemplateConstant, phaseKind, fetchError),
			zap.String(logFieldPhaseConstant, string(phaseKind)),
		)
		return nil
	}
	if len(phaseEntities) == 0 {
		orchestrator.logger.Info(phaseEmptyMessageConstant, zap.String(logFieldPhaseConstant, string(phaseKind)))
		return nil
	}

	orchestrator.logger.Info(
		phaseStartedMessageConstant,
		zap.String(logFieldPhaseConstant, string(phaseKind)),
		zap.Int(logFieldPhaseEntityCountConstant, len(phaseEntities)),
	)

	return RunBatches(
		executionContext,
		orchestrator.logger,
		strategy,
		phaseEntities,
		orchestrator.plan.BatchSize,
		orchestrator.plan.MaxConcurrentBatches,
	)
}

func (orchestrator *Orchestrator) listProjectsCached(executionContext context.Context) ([]gitlab.Project, error) {
	if orchestrator.cachedProjects != nil {
		return orchestrator.cachedProjects, nil
	}
	fetchedProjects, fetchError := orchestrator.source.ListProjects(executionContext)
	if fetchError != nil {
		return nil, fetchError
	}
	orchestrator.cachedProjects = fetchedProjects
	return fetchedProjects, nil
}

// listRepositories derives the repository phase input from the source project
// list, reusing the project phase fetch when it already ran.
func (orchestrator *Orchestrator) listRepositories(executionContext context.Context) ([]Repository, error) {
	sourceProjects, fetchError := orchestrator.listProjectsCached(executionContext)
	if fetchError != nil {
		return nil, fetchError
	}

	derivedRepositories := make([]Repository, 0, len(sourceProjects))
	for _, sourceProject := range sourceProjects {
		repositorySizeBytes := int64(0)
		if sourceProject.Statistics != nil {
			repositorySizeBytes = sourceProject.Statistics.RepositorySizeBytes
		}
		derivedRepositories = append(derivedRepositories, Repository{
			ProjectID:         sourceProject.ID,
			Name:              sourceProject.Name,
			PathWithNamespace: sourceProject.PathWithNamespace,
			HTTPURLToRepo:     sourceProject.HTTPURLToRepo,
			DefaultBranch:     sourceProject.DefaultBranch,
			EmptyRepo:         sourceProject.EmptyRepo,
			SizeBytes:         repositorySizeBytes,
			LFSEnabled:        sourceProject.LFSEnabled,
		})
	}
	return derivedRepositories, nil
}
