package llm

import "errors"

// Error taxonomy for completion calls. Wrapped errors keep the upstream
// cause in the chain, so errors.Is selects the class and the log line still
// carries the SDK detail.
var (
	ErrConfiguration = errors.New("llm configuration error")
	ErrAPI           = errors.New("llm api error")
	ErrTimeout       = errors.New("llm timeout")
	ErrQuotaExceeded = errors.New("llm quota exceeded")
)
