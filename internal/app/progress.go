package app

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/fkrzski/docker-proxy/internal/certtool"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const spinnerUpdateInterval = 100 * time.Millisecond

type spinnerProgressReporter struct {
	spinnerInstance *spinner.Spinner
}

// newProgressReporter returns a terminal spinner when stdout is an
// interactive terminal in console mode, and a no-op reporter otherwise so
// JSON logs and piped output stay clean.
func newProgressReporter(loggingType string) certtool.ProgressReporter {
	if loggingType != logging.TypeConsole {
		return certtool.NopProgressReporter{}
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return certtool.NopProgressReporter{}
	}
	return &spinnerProgressReporter{
		spinnerInstance: spinner.New(spinner.CharSets[14], spinnerUpdateInterval),
	}
}

func (reporter *spinnerProgressReporter) Start(message string) {
	reporter.spinnerInstance.Suffix = " " + message
	reporter.spinnerInstance.Start()
}

func (reporter *spinnerProgressReporter) Stop() {
	reporter.spinnerInstance.Stop()
}
