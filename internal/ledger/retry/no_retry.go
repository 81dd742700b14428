package retry

import "context"

// NoRetryStrategy makes a single attempt. It backs disabled retries and calls
// that must not repeat, such as submits.
type NoRetryStrategy struct{}

func NewNoRetryStrategy() *NoRetryStrategy {
	return &NoRetryStrategy{}
}

func (s *NoRetryStrategy) Execute(_ context.Context, operation Operation) error {
	return operation()
}

func (s *NoRetryStrategy) Name() string {
	return "NoRetry"
}
