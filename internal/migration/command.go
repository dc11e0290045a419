package migration

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/glmigrate/internal/report"
	"github.com/temirov/glmigrate/internal/utils"
)

const (
	migrateCommandUseConstant              = "migrate"
	migrateCommandShortDescriptionConstant = "Migrate users, groups, projects, and repositories"
	migrateCommandLongDescriptionConstant  = "migrate runs every enabled migration phase in dependency order against the configured destination instance, reporting per entity outcomes in a run summary."
	validateCommandUseConstant             = "validate"
	validateCommandShortDescription        = "Validate connectivity and credentials for both instances"
	validateCommandLongDescription         = "validate probes the source and destination instances with the configured credentials without performing any writes."
	statusCommandUseConstant               = "status"
	statusCommandShortDescriptionConstant  = "Show reachability and entity counts for both instances"
	statusCommandLongDescriptionConstant   = "status queries both instances and prints their reachability together with user, group, and project counts."
	dryRunFlagNameConstant                 = "dry-run"
	dryRunFlagUsageConstant                = "Report what would be migrated without writing to the destination"
	migrationFailureTemplateConstant       = "migration run failed: %w"
	validationFailureTemplateConstant      = "validation failed: %w"
	engineCreationFailureTemplateConstant  = "unable to construct migration engine: %w"
	validationSucceededMessageConstant     = "Both instances reachable"
	runCompletedMessageConstant            = "Migration run completed"
	logFieldTotalResultsConstant           = "total_results"
	logFieldFailedResultsConstant          = "failed_results"
	logFieldDryRunConstant                 = "dry_run"
	logFieldConfigurationFileConstant      = "configuration_file"
	logFieldEffectiveLogLevelConstant      = "log_level"
	configurationResolvedMessageConstant   = "Configuration resolved"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the effective run configuration.
type ConfigurationProvider func() CommandConfiguration

// MigrateCommandBuilder assembles the migrate Cobra command.
type MigrateCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the migrate command.
func (builder *MigrateCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           migrateCommandUseConstant,
		Short:         migrateCommandShortDescriptionConstant,
		Long:          migrateCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *MigrateCommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	logRunProvenance(logger, command)

	dryRunRequested, flagError := command.Flags().GetBool(dryRunFlagNameConstant)
	if flagError != nil {
		return flagError
	}

	engine, engineError := NewEngine(configuration, logger)
	if engineError != nil {
		return fmt.Errorf(engineCreationFailureTemplateConstant, engineError)
	}

	runSummary, runError := engine.Migrate(command.Context(), dryRunRequested)
	if runError != nil {
		return fmt.Errorf(migrationFailureTemplateConstant, runError)
	}

	logger.Info(
		runCompletedMessageConstant,
		zap.Int(logFieldTotalResultsConstant, runSummary.Overall.Total),
		zap.Int(logFieldFailedResultsConstant, runSummary.Overall.Failed),
		zap.Bool(logFieldDryRunConstant, dryRunRequested),
	)

	report.WriteRun(command.OutOrStdout(), runViewOf(runSummary))
	return nil
}

// ValidateCommandBuilder assembles the validate Cobra command.
type ValidateCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the validate command.
func (builder *ValidateCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           validateCommandUseConstant,
		Short:         validateCommandShortDescription,
		Long:          validateCommandLongDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runValidate,
	}

	return command, nil
}

func (builder *ValidateCommandBuilder) runValidate(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	logRunProvenance(logger, command)

	engine, engineError := NewEngine(configuration, logger)
	if engineError != nil {
		return fmt.Errorf(engineCreationFailureTemplateConstant, engineError)
	}

	if connectivityError := engine.TestConnectivity(command.Context()); connectivityError != nil {
		return fmt.Errorf(validationFailureTemplateConstant, connectivityError)
	}

	logger.Info(validationSucceededMessageConstant)
	fmt.Fprintln(command.OutOrStdout(), validationSucceededMessageConstant)
	return nil
}

// StatusCommandBuilder assembles the status Cobra command.
type StatusCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           statusCommandUseConstant,
		Short:         statusCommandShortDescriptionConstant,
		Long:          statusCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runStatus,
	}

	return command, nil
}

func (builder *StatusCommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	logRunProvenance(logger, command)

	engine, engineError := NewEngine(configuration, logger)
	if engineError != nil {
		return fmt.Errorf(engineCreationFailureTemplateConstant, engineError)
	}

	report.WriteInstances(command.OutOrStdout(), instanceRowsOf(engine.Status(command.Context())))
	return nil
}

// runViewOf converts a run summary into its renderable form.
func runViewOf(runSummary Summary) report.RunView {
	runView := report.RunView{
		Overall: report.CountsRow{
			Label:     "overall",
			Total:     runSummary.Overall.Total,
			Completed: runSummary.Overall.Completed,
			Skipped:   runSummary.Overall.Skipped,
			Failed:    runSummary.Overall.Failed,
		},
		Duration: runSummary.Duration(),
		Warnings: runSummary.Warnings,
		Errors:   runSummary.Errors,
	}

	for _, entityKind := range DefaultPlan().ExecutionOrder {
		kindCounts, kindPresent := runSummary.CountsByKind[entityKind]
		if !kindPresent {
			continue
		}
		runView.Rows = append(runView.Rows, report.CountsRow{
			Label:     string(entityKind),
			Total:     kindCounts.Total,
			Completed: kindCounts.Completed,
			Skipped:   kindCounts.Skipped,
			Failed:    kindCounts.Failed,
		})
	}

	return runView
}

func instanceRowsOf(instanceStatuses []InstanceStatus) []report.InstanceRow {
	instanceRows := make([]report.InstanceRow, 0, len(instanceStatuses))
	for _, instanceStatus := range instanceStatuses {
		instanceRows = append(instanceRows, report.InstanceRow{
			Label:     instanceStatus.Label,
			Reachable: instanceStatus.Reachable,
			Users:     instanceStatus.Users,
			Groups:    instanceStatus.Groups,
			Projects:  instanceStatus.Projects,
			Detail:    instanceStatus.Error,
		})
	}
	return instanceRows
}

// logRunProvenance ties a command invocation back to the configuration file
// and log level that produced it.
func logRunProvenance(logger *zap.Logger, command *cobra.Command) {
	contextAccessor := utils.NewCommandContextAccessor()
	provenanceFields := []zap.Field{}
	if configurationFilePath, pathAvailable := contextAccessor.ConfigurationFilePath(command.Context()); pathAvailable && len(configurationFilePath) > 0 {
		provenanceFields = append(provenanceFields, zap.String(logFieldConfigurationFileConstant, configurationFilePath))
	}
	if effectiveLogLevel, levelAvailable := contextAccessor.LogLevel(command.Context()); levelAvailable {
		provenanceFields = append(provenanceFields, zap.String(logFieldEffectiveLogLevelConstant, effectiveLogLevel))
	}
	if len(provenanceFields) > 0 {
		logger.Debug(configurationResolvedMessageConstant, provenanceFields...)
	}
}

func resolveLogger(loggerProvider LoggerProvider) *zap.Logger {
	if loggerProvider == nil {
		return zap.NewNop()
	}
	providedLogger := loggerProvider()
	if providedLogger == nil {
		return zap.NewNop()
	}
	return providedLogger
}

func resolveConfiguration(configurationProvider ConfigurationProvider) CommandConfiguration {
	if configurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return configurationProvider()
}
