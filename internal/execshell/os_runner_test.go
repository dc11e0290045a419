package execshell_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/glmigrate/internal/execshell"
)

const (
	testShellExecutableNameConstant       = "sh"
	testShellCommandFlagConstant          = "-c"
	testPromptVariableScriptConstant      = `printf %s "$GIT_TERMINAL_PROMPT"`
	testFailingScriptConstant             = "echo oops >&2; exit 3"
	testMissingExecutableNameConstant     = "glmigrate-no-such-executable"
	testPromptVariableNameConstant        = "GIT_TERMINAL_PROMPT"
	testPromptOverrideValueConstant       = "1"
	testExpectedNonInteractiveValue       = "0"
	testExpectedFailingExitCodeConstant   = 3
	testExpectedStandardErrorPartConstant = "oops"
)

func shellCommandRunning(scriptText string, environmentVariables map[string]string) execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandName(testShellExecutableNameConstant),
		Details: execshell.CommandDetails{
			Arguments:            []string{testShellCommandFlagConstant, scriptText},
			EnvironmentVariables: environmentVariables,
		},
	}
}

func TestOSCommandRunnerDisablesGitTerminalPrompts(testInstance *testing.T) {
	testInstance.Parallel()

	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), shellCommandRunning(testPromptVariableScriptConstant, nil))
	require.NoError(testInstance, runError)
	require.Equal(testInstance, testExpectedNonInteractiveValue, strings.TrimSpace(executionResult.StandardOutput))
}

func TestOSCommandRunnerCommandEnvironmentOverridesBase(testInstance *testing.T) {
	testInstance.Parallel()

	overrides := map[string]string{testPromptVariableNameConstant: testPromptOverrideValueConstant}
	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), shellCommandRunning(testPromptVariableScriptConstant, overrides))
	require.NoError(testInstance, runError)
	require.Equal(testInstance, testPromptOverrideValueConstant, strings.TrimSpace(executionResult.StandardOutput))
}

func TestOSCommandRunnerReportsExitCodeWithoutError(testInstance *testing.T) {
	testInstance.Parallel()

	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), shellCommandRunning(testFailingScriptConstant, nil))
	require.NoError(testInstance, runError)
	require.Equal(testInstance, testExpectedFailingExitCodeConstant, executionResult.ExitCode)
	require.Contains(testInstance, executionResult.StandardError, testExpectedStandardErrorPartConstant)
}

func TestOSCommandRunnerWrapsSpawnFailures(testInstance *testing.T) {
	testInstance.Parallel()

	runner := execshell.NewOSCommandRunner()
	missingCommand := execshell.ShellCommand{
		Name:    execshell.CommandName(testMissingExecutableNameConstant),
		Details: execshell.CommandDetails{},
	}
	_, runError := runner.Run(context.Background(), missingCommand)
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), testMissingExecutableNameConstant)
}