package migration

import "github.com/temirov/glmigrate/internal/registry"

const (
	defaultBatchSizeConstant            = 10
	defaultMaxConcurrentBatchesConstant = 2
	defaultMemberBatchSizeConstant      = 20
)

// Plan fixes what a run migrates and with what concurrency. It is created
// once per run and read only during execution.
type Plan struct {
	EnabledKinds         map[registry.EntityKind]bool
	ExecutionOrder       []registry.EntityKind
	BatchSize            int
	MaxConcurrentBatches int
	MemberBatchSize      int
	DryRun               bool
}

// DefaultPlan enables every phase in dependency order with default batching.
func DefaultPlan() Plan {
	return Plan{
		EnabledKinds: map[registry.EntityKind]bool{
			registry.KindUser:       true,
			registry.KindGroup:      true,
			registry.KindProject:    true,
			registry.KindRepository: true,
		},
		ExecutionOrder: []registry.EntityKind{
			registry.KindUser,
			registry.KindGroup,
			registry.KindProject,
			registry.KindRepository,
		},
		BatchSize:            defaultBatchSizeConstant,
		MaxConcurrentBatches: defaultMaxConcurrentBatchesConstant,
		MemberBatchSize:      defaultMemberBatchSizeConstant,
	}
}

// Sanitize replaces non-positive batching values with defaults and fills in a
// missing execution order.
func (migrationPlan Plan) Sanitize() Plan {
	sanitizedPlan := migrationPlan
	if sanitizedPlan.BatchSize <= 0 {
		sanitizedPlan.BatchSize = defaultBatchSizeConstant
	}
	if sanitizedPlan.MaxConcurrentBatches <= 0 {
		sanitizedPlan.MaxConcurrentBatches = defaultMaxConcurrentBatchesConstant
	}
	if sanitizedPlan.MemberBatchSize <= 0 {
		sanitizedPlan.MemberBatchSize = defaultMemberBatchSizeConstant
	}
	if len(sanitizedPlan.ExecutionOrder) == 0 {
		sanitizedPlan.ExecutionOrder = DefaultPlan().ExecutionOrder
	}
	if sanitizedPlan.EnabledKinds == nil {
		sanitizedPlan.EnabledKinds = DefaultPlan().EnabledKinds
	}
	return sanitizedPlan
}
