package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes system commands.
type CommandRunner interface {
	Run(ctx context.Context, executable string, arguments []string) error
	RunOutput(ctx context.Context, executable string, arguments []string) (string, error)
}

// BinaryLocator resolves executable names against the current PATH.
type BinaryLocator interface {
	LookPath(name string) (string, error)
}

// ExecutableRunner executes commands using the local operating system.
type ExecutableRunner struct{}

// NewExecutableRunner constructs an ExecutableRunner.
func NewExecutableRunner() ExecutableRunner {
	return ExecutableRunner{}
}

// Run executes the executable with the provided arguments.
func (executableRunner ExecutableRunner) Run(ctx context.Context, executable string, arguments []string) error {
	command := exec.CommandContext(ctx, executable, arguments...)
	var stderrBuffer bytes.Buffer
	command.Stderr = &stderrBuffer
	err := command.Run()
	if err != nil {
		return fmt.Errorf("execute %s: %w: %s", executable, err, stderrBuffer.String())
	}
	return nil
}

// RunOutput executes the executable and returns its trimmed standard output.
func (executableRunner ExecutableRunner) RunOutput(ctx context.Context, executable string, arguments []string) (string, error) {
	command := exec.CommandContext(ctx, executable, arguments...)
	var stdoutBuffer bytes.Buffer
	var stderrBuffer bytes.Buffer
	command.Stdout = &stdoutBuffer
	command.Stderr = &stderrBuffer
	err := command.Run()
	if err != nil {
		return "", fmt.Errorf("execute %s: %w: %s", executable, err, stderrBuffer.String())
	}
	return strings.TrimSpace(stdoutBuffer.String()), nil
}

// ExecutableLocator resolves executables using the operating system PATH.
type ExecutableLocator struct{}

// NewExecutableLocator constructs an ExecutableLocator.
func NewExecutableLocator() ExecutableLocator {
	return ExecutableLocator{}
}

// LookPath returns the absolute path of the named executable.
func (executableLocator ExecutableLocator) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
