package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/utils"
)

const (
	testConfigurationFilePathConstant = "/etc/glmigrate/config.yaml"
	testEffectiveLogLevelConstant     = "debug"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	testInstance.Parallel()

	contextAccessor := utils.NewCommandContextAccessor()

	decoratedContext := contextAccessor.WithConfigurationFilePath(context.Background(), testConfigurationFilePathConstant)
	decoratedContext = contextAccessor.WithLogLevel(decoratedContext, testEffectiveLogLevelConstant)

	configurationFilePath, configurationFilePathAvailable := contextAccessor.ConfigurationFilePath(decoratedContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, testConfigurationFilePathConstant, configurationFilePath)

	effectiveLogLevel, effectiveLogLevelAvailable := contextAccessor.LogLevel(decoratedContext)
	require.True(testInstance, effectiveLogLevelAvailable)
	require.Equal(testInstance, testEffectiveLogLevelConstant, effectiveLogLevel)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	testInstance.Parallel()

	contextAccessor := utils.NewCommandContextAccessor()

	_, configurationFilePathAvailable := contextAccessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationFilePathAvailable)

	_, effectiveLogLevelAvailable := contextAccessor.LogLevel(context.Background())
	require.False(testInstance, effectiveLogLevelAvailable)

	_, nilContextAvailable := contextAccessor.LogLevel(nil)
	require.False(testInstance, nilContextAvailable)
}
