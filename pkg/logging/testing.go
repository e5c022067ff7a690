package logging

import "go.uber.org/zap"

// NewTestService constructs a Service that discards all output, for use in tests.
func NewTestService(loggingType string) *Service {
	return &Service{loggingType: loggingType, logger: zap.NewNop()}
}
