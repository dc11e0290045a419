package migration_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/glmigrate/internal/migration"
	"github.com/temirov/glmigrate/internal/registry"
)

const sampleConfigurationYAMLConstant = `
source:
  url: https://source.example.com
  token: source-token
  requests_per_second: 5
destination:
  url: https://destination.example.com
  token: destination-token
migrate_users: true
migrate_groups: true
migrate_projects: true
migrate_repositories: false
batch_size: 25
max_concurrent_batches: 4
disk_conflict_retries: 3
workspace_root: /var/tmp/glmigrate
`

func TestCommandConfigurationDecodesFromYAML(testInstance *testing.T) {
	testInstance.Parallel()

	decodedConfiguration := migration.CommandConfiguration{}
	require.NoError(testInstance, yaml.Unmarshal([]byte(sampleConfigurationYAMLConstant), &decodedConfiguration))

	require.Equal(testInstance, "https://source.example.com", decodedConfiguration.Source.URL)
	require.Equal(testInstance, "source-token", decodedConfiguration.Source.Token)
	require.Equal(testInstance, 5.0, decodedConfiguration.Source.RequestsPerSecond)
	require.Equal(testInstance, "https://destination.example.com", decodedConfiguration.Destination.URL)
	require.True(testInstance, decodedConfiguration.MigrateUsers)
	require.False(testInstance, decodedConfiguration.MigrateRepositories)
	require.Equal(testInstance, 25, decodedConfiguration.BatchSize)
	require.Equal(testInstance, 4, decodedConfiguration.MaxConcurrentBatches)
	require.Equal(testInstance, 3, decodedConfiguration.DiskConflictRetries)
	require.Equal(testInstance, "/var/tmp/glmigrate", decodedConfiguration.WorkspaceRoot)
}

func TestCommandConfigurationSanitizeFillsDefaults(testInstance *testing.T) {
	testInstance.Parallel()

	sanitizedConfiguration := migration.CommandConfiguration{
		Source:      migration.InstanceConfiguration{URL: "  https://source.example.com  ", Token: " source-token "},
		Destination: migration.InstanceConfiguration{URL: "https://destination.example.com", Token: "destination-token"},
	}.Sanitize()

	require.Equal(testInstance, "https://source.example.com", sanitizedConfiguration.Source.URL)
	require.Equal(testInstance, "source-token", sanitizedConfiguration.Source.Token)
	require.Equal(testInstance, 10.0, sanitizedConfiguration.Source.RequestsPerSecond)
	require.Equal(testInstance, 3, sanitizedConfiguration.Source.TransportRetries)
	require.Equal(testInstance, 10, sanitizedConfiguration.BatchSize)
	require.Equal(testInstance, 2, sanitizedConfiguration.MaxConcurrentBatches)
	require.Equal(testInstance, 20, sanitizedConfiguration.MemberBatchSize)
	require.Equal(testInstance, 5, sanitizedConfiguration.DiskConflictRetries)
}

func TestCommandConfigurationBuildPlan(testInstance *testing.T) {
	testCases := []struct {
		name           string
		configuration  migration.CommandConfiguration
		dryRunOverride bool
		expectedDryRun bool
	}{
		{
			name: "phase_toggles_carry_into_plan",
			configuration: migration.CommandConfiguration{
				MigrateUsers:    true,
				MigrateProjects: true,
				BatchSize:       15,
			},
		},
		{
			name:           "flag_override_enables_dry_run",
			configuration:  migration.DefaultCommandConfiguration(),
			dryRunOverride: true,
			expectedDryRun: true,
		},
		{
			name:           "configured_dry_run_sticks",
			configuration:  migration.CommandConfiguration{DryRun: true},
			expectedDryRun: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			testInstance.Parallel()

			migrationPlan := testCase.configuration.BuildPlan(testCase.dryRunOverride)

			require.Equal(testInstance, testCase.configuration.MigrateUsers, migrationPlan.EnabledKinds[registry.KindUser])
			require.Equal(testInstance, testCase.configuration.MigrateGroups, migrationPlan.EnabledKinds[registry.KindGroup])
			require.Equal(testInstance, testCase.configuration.MigrateProjects, migrationPlan.EnabledKinds[registry.KindProject])
			require.Equal(testInstance, testCase.configuration.MigrateRepositories, migrationPlan.EnabledKinds[registry.KindRepository])
			require.Equal(testInstance, testCase.expectedDryRun, migrationPlan.DryRun)
			if testCase.configuration.BatchSize > 0 {
				require.Equal(testInstance, testCase.configuration.BatchSize, migrationPlan.BatchSize)
			}
		})
	}
}

func TestDefaultConfigurationValuesUsePrefix(testInstance *testing.T) {
	testInstance.Parallel()

	defaultValues := migration.DefaultConfigurationValues("migration")

	require.Equal(testInstance, true, defaultValues["migration.migrate_users"])
	require.Equal(testInstance, true, defaultValues["migration.migrate_repositories"])
	require.Equal(testInstance, 10, defaultValues["migration.batch_size"])
	require.Equal(testInstance, 5, defaultValues["migration.disk_conflict_retries"])
}
