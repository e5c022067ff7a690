package certificates

import (
	"context"
	"errors"
	"fmt"

	"github.com/fkrzski/docker-proxy/internal/system"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const toolInstallArgument = "-install"

// ErrTrustStore is returned when the certificate tool reported failure while
// establishing trust.
var ErrTrustStore = errors.New("trust store assertion failed")

// AuthorityBootstrapper ensures the local certificate authority is present
// in the operating system and browser trust stores. Trust-store integration
// itself is delegated to the certificate tool.
type AuthorityBootstrapper struct {
	commandRunner  system.CommandRunner
	loggingService *logging.Service
	toolBinaryName string
}

// NewAuthorityBootstrapper constructs an AuthorityBootstrapper.
func NewAuthorityBootstrapper(commandRunner system.CommandRunner, loggingService *logging.Service, toolBinaryName string) AuthorityBootstrapper {
	return AuthorityBootstrapper{
		commandRunner:  commandRunner,
		loggingService: loggingService,
		toolBinaryName: toolBinaryName,
	}
}

// EnsureTrusted asserts the certificate authority into the trust stores.
// The tool call runs on every invocation, even when a certificate authority
// already exists: trust-store registration can be silently lost (a browser
// profile reset, for example) and re-assertion is cheap and idempotent.
func (bootstrapper AuthorityBootstrapper) EnsureTrusted(ctx context.Context) error {
	bootstrapper.loggingService.Info("asserting certificate authority trust")
	runErr := bootstrapper.commandRunner.Run(ctx, bootstrapper.toolBinaryName, []string{toolInstallArgument})
	if runErr != nil {
		return fmt.Errorf("%w: %v", ErrTrustStore, runErr)
	}
	return nil
}
