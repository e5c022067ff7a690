package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fkrzski/docker-proxy/pkg/logging"
)

func TestNormalizeTypeHandlesVariants(t *testing.T) {
	testCases := []struct {
		testName     string
		rawValue     string
		expectedType string
		expectErr    bool
	}{
		{
			testName:     "EmptyValueDefaultsToConsole",
			rawValue:     "",
			expectedType: logging.TypeConsole,
		},
		{
			testName:     "WhitespaceDefaultsToConsole",
			rawValue:     "   ",
			expectedType: logging.TypeConsole,
		},
		{
			testName:     "LowercaseConsole",
			rawValue:     "console",
			expectedType: logging.TypeConsole,
		},
		{
			testName:     "LowercaseJSON",
			rawValue:     "json",
			expectedType: logging.TypeJSON,
		},
		{
			testName:  "UnsupportedValue",
			rawValue:  "xml",
			expectErr: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.testName, func(t *testing.T) {
			normalizedType, err := logging.NormalizeType(testCase.rawValue)
			if testCase.expectErr {
				if err == nil {
					t.Fatalf("expected error for %q", testCase.rawValue)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize type: %v", err)
			}
			if normalizedType != testCase.expectedType {
				t.Fatalf("expected %s, got %s", testCase.expectedType, normalizedType)
			}
		})
	}
}

func newBufferedService(t *testing.T, loggingType string) (*logging.Service, *bytes.Buffer) {
	t.Helper()
	buffer := &bytes.Buffer{}
	var encoder zapcore.Encoder
	if loggingType == logging.TypeJSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoderConfig := zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(buffer), zapcore.InfoLevel)
	service, err := logging.NewServiceWithLogger(loggingType, zap.New(core))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return service, buffer
}

func TestConsoleServiceFormatsFields(t *testing.T) {
	service, buffer := newBufferedService(t, logging.TypeConsole)

	service.Info("stack started", logging.String("network", "proxy"))
	firstLine := strings.TrimSpace(buffer.String())
	expectedLine := fmt.Sprintf("stack started network=%q", "proxy")
	if firstLine != expectedLine {
		t.Fatalf("expected %q, got %q", expectedLine, firstLine)
	}

	buffer.Reset()
	service.Error("launch failed", errors.New("daemon unreachable"))
	errorLine := strings.TrimSpace(buffer.String())
	if !strings.Contains(errorLine, "launch failed") || !strings.Contains(errorLine, "daemon unreachable") {
		t.Fatalf("unexpected error line %q", errorLine)
	}
}

func TestJSONServiceEmitsStructuredFields(t *testing.T) {
	service, buffer := newBufferedService(t, logging.TypeJSON)

	service.Warn("package manager not found", logging.Strings("candidates", []string{"apt", "dnf"}))
	var decoded map[string]any
	if unmarshalErr := json.Unmarshal(buffer.Bytes(), &decoded); unmarshalErr != nil {
		t.Fatalf("decode json log line: %v", unmarshalErr)
	}
	if decoded["msg"] != "package manager not found" {
		t.Fatalf("unexpected message %v", decoded["msg"])
	}
	if decoded["level"] != "warn" {
		t.Fatalf("unexpected level %v", decoded["level"])
	}
	candidates, ok := decoded["candidates"].([]any)
	if !ok || len(candidates) != 2 {
		t.Fatalf("unexpected candidates %v", decoded["candidates"])
	}
}
