package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	initCommandUseConstant              = "init"
	initCommandShortDescriptionConstant = "Write a starter configuration file"
	initCommandLongDescriptionConstant  = "init writes the default configuration template to the target path so credentials and batching can be filled in."
	initOutputFlagNameConstant          = "output"
	initOutputFlagUsageConstant         = "Path of the configuration file to create."
	initDefaultOutputPathConstant       = "config.yaml"
	initExistingFileTemplateConstant    = "configuration file %s already exists"
	initWriteFailureTemplateConstant    = "write configuration file %s: %w"
	initFilePermissionsConstant         = 0o600
	configurationWrittenMessageConstant = "Configuration template written"
	logFieldOutputPathConstant          = "output_path"
)

// InitCommandBuilder assembles the init Cobra command.
type InitCommandBuilder struct {
	LoggerProvider func() *zap.Logger
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           initCommandUseConstant,
		Short:         initCommandShortDescriptionConstant,
		Long:          initCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runInit,
	}

	command.Flags().String(initOutputFlagNameConstant, initDefaultOutputPathConstant, initOutputFlagUsageConstant)

	return command, nil
}

func (builder *InitCommandBuilder) runInit(command *cobra.Command, arguments []string) error {
	outputPath, flagError := command.Flags().GetString(initOutputFlagNameConstant)
	if flagError != nil {
		return flagError
	}

	if _, statError := os.Stat(outputPath); statError == nil {
		return fmt.Errorf(initExistingFileTemplateConstant, outputPath)
	}

	templateContent, _ := EmbeddedDefaultConfiguration()
	if writeError := os.WriteFile(outputPath, templateContent, initFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(initWriteFailureTemplateConstant, outputPath, writeError)
	}

	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			logger.Info(configurationWrittenMessageConstant, zap.String(logFieldOutputPathConstant, outputPath))
		}
	}

	fmt.Fprintln(command.OutOrStdout(), outputPath)
	return nil
}
