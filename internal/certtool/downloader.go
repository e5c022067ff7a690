package certtool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultDownloadTimeout = 5 * time.Minute

// Downloader fetches a file from a URL to a local path.
type Downloader interface {
	Download(ctx context.Context, url string, destinationPath string) error
}

// HTTPDownloader downloads files over HTTP using a shared client.
type HTTPDownloader struct {
	httpClient *http.Client
}

// NewHTTPDownloader constructs an HTTPDownloader.
func NewHTTPDownloader() HTTPDownloader {
	return HTTPDownloader{httpClient: &http.Client{Timeout: defaultDownloadTimeout}}
}

// Download fetches url and writes the response body to destinationPath.
func (downloader HTTPDownloader) Download(ctx context.Context, url string, destinationPath string) error {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if requestErr != nil {
		return fmt.Errorf("build download request: %w", requestErr)
	}
	response, responseErr := downloader.httpClient.Do(request)
	if responseErr != nil {
		return fmt.Errorf("download %s: %w", url, responseErr)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, response.Status)
	}

	destinationFile, createErr := os.Create(destinationPath)
	if createErr != nil {
		return fmt.Errorf("create download destination: %w", createErr)
	}
	defer destinationFile.Close()

	if _, copyErr := io.Copy(destinationFile, response.Body); copyErr != nil {
		return fmt.Errorf("write download destination: %w", copyErr)
	}
	return nil
}
