package migration

import (
	"strings"

	"github.com/temirov/glmigrate/internal/registry"
)

const (
	defaultRequestsPerSecondConfiguration = 10.0
	defaultTransportRetriesConfiguration  = 3
)

// InstanceConfiguration identifies one GitLab instance and its credentials.
type InstanceConfiguration struct {
	URL               string  `mapstructure:"url" yaml:"url"`
	Token             string  `mapstructure:"token" yaml:"token"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	TransportRetries  int     `mapstructure:"transport_retries" yaml:"transport_retries"`
}

// Sanitize trims whitespace and fills defaulted rate values.
func (configuration InstanceConfiguration) Sanitize() InstanceConfiguration {
	sanitizedConfiguration := configuration
	sanitizedConfiguration.URL = strings.TrimSpace(sanitizedConfiguration.URL)
	sanitizedConfiguration.Token = strings.TrimSpace(sanitizedConfiguration.Token)
	if sanitizedConfiguration.RequestsPerSecond <= 0 {
		sanitizedConfiguration.RequestsPerSecond = defaultRequestsPerSecondConfiguration
	}
	if sanitizedConfiguration.TransportRetries <= 0 {
		sanitizedConfiguration.TransportRetries = defaultTransportRetriesConfiguration
	}
	return sanitizedConfiguration
}

// CommandConfiguration carries every tunable of a migration run.
type CommandConfiguration struct {
	Source               InstanceConfiguration `mapstructure:"source" yaml:"source"`
	Destination          InstanceConfiguration `mapstructure:"destination" yaml:"destination"`
	MigrateUsers         bool                  `mapstructure:"migrate_users" yaml:"migrate_users"`
	MigrateGroups        bool                  `mapstructure:"migrate_groups" yaml:"migrate_groups"`
	MigrateProjects      bool                  `mapstructure:"migrate_projects" yaml:"migrate_projects"`
	MigrateRepositories  bool                  `mapstructure:"migrate_repositories" yaml:"migrate_repositories"`
	BatchSize            int                   `mapstructure:"batch_size" yaml:"batch_size"`
	MaxConcurrentBatches int                   `mapstructure:"max_concurrent_batches" yaml:"max_concurrent_batches"`
	MemberBatchSize      int                   `mapstructure:"member_batch_size" yaml:"member_batch_size"`
	DiskConflictRetries  int                   `mapstructure:"disk_conflict_retries" yaml:"disk_conflict_retries"`
	WorkspaceRoot        string                `mapstructure:"workspace_root" yaml:"workspace_root"`
	DryRun               bool                  `mapstructure:"dry_run" yaml:"dry_run"`
}

// DefaultCommandConfiguration enables every phase with default batching.
func DefaultCommandConfiguration() CommandConfiguration {
	defaultPlan := DefaultPlan()
	return CommandConfiguration{
		MigrateUsers:         true,
		MigrateGroups:        true,
		MigrateProjects:      true,
		MigrateRepositories:  true,
		BatchSize:            defaultPlan.BatchSize,
		MaxConcurrentBatches: defaultPlan.MaxConcurrentBatches,
		MemberBatchSize:      defaultPlan.MemberBatchSize,
		DiskConflictRetries:  defaultDiskConflictAttemptsConstant,
	}
}

// Sanitize normalizes nested configuration and batching values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitizedConfiguration := configuration
	sanitizedConfiguration.Source = sanitizedConfiguration.Source.Sanitize()
	sanitizedConfiguration.Destination = sanitizedConfiguration.Destination.Sanitize()
	sanitizedConfiguration.WorkspaceRoot = strings.TrimSpace(sanitizedConfiguration.WorkspaceRoot)
	if sanitizedConfiguration.BatchSize <= 0 {
		sanitizedConfiguration.BatchSize = defaultBatchSizeConstant
	}
	if sanitizedConfiguration.MaxConcurrentBatches <= 0 {
		sanitizedConfiguration.MaxConcurrentBatches = defaultMaxConcurrentBatchesConstant
	}
	if sanitizedConfiguration.MemberBatchSize <= 0 {
		sanitizedConfiguration.MemberBatchSize = defaultMemberBatchSizeConstant
	}
	if sanitizedConfiguration.DiskConflictRetries <= 0 {
		sanitizedConfiguration.DiskConflictRetries = defaultDiskConflictAttemptsConstant
	}
	return sanitizedConfiguration
}

// BuildPlan converts the configuration into a migration Plan.
func (configuration CommandConfiguration) BuildPlan(dryRun bool) Plan {
	sanitizedConfiguration := configuration.Sanitize()
	migrationPlan := DefaultPlan()
	migrationPlan.EnabledKinds = enabledKindsOf(sanitizedConfiguration)
	migrationPlan.BatchSize = sanitizedConfiguration.BatchSize
	migrationPlan.MaxConcurrentBatches = sanitizedConfiguration.MaxConcurrentBatches
	migrationPlan.MemberBatchSize = sanitizedConfiguration.MemberBatchSize
	migrationPlan.DryRun = dryRun || sanitizedConfiguration.DryRun
	return migrationPlan
}

// DefaultConfigurationValues exposes configuration defaults keyed beneath the
// provided configuration prefix for registration with the loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".migrate_users":          defaults.MigrateUsers,
		configurationKeyPrefix + ".migrate_groups":         defaults.MigrateGroups,
		configurationKeyPrefix + ".migrate_projects":       defaults.MigrateProjects,
		configurationKeyPrefix + ".migrate_repositories":   defaults.MigrateRepositories,
		configurationKeyPrefix + ".batch_size":             defaults.BatchSize,
		configurationKeyPrefix + ".max_concurrent_batches": defaults.MaxConcurrentBatches,
		configurationKeyPrefix + ".member_batch_size":      defaults.MemberBatchSize,
		configurationKeyPrefix + ".disk_conflict_retries":  defaults.DiskConflictRetries,
	}
}

// CredentialConfigurationKeys lists the instance keys that are typically
// supplied through environment variables instead of the configuration file.
func CredentialConfigurationKeys(configurationKeyPrefix string) []string {
	return []string{
		configurationKeyPrefix + ".source.url",
		configurationKeyPrefix + ".source.token",
		configurationKeyPrefix + ".destination.url",
		configurationKeyPrefix + ".destination.token",
	}
}

func enabledKindsOf(configuration CommandConfiguration) map[registry.EntityKind]bool {
	return map[registry.EntityKind]bool{
		registry.KindUser:       configuration.MigrateUsers,
		registry.KindGroup:      configuration.MigrateGroups,
		registry.KindProject:    configuration.MigrateProjects,
		registry.KindRepository: configuration.MigrateRepositories,
	}
}
