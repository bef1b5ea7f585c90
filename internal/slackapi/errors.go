package slackapi

import "errors"

// Platform failures split by what the caller was touching. Wrapping keeps
// the Slack error code in the chain.
var (
	// ErrChannel marks failures of channel-level operations
	// (conversations.info).
	ErrChannel = errors.New("slack channel error")
	// ErrThread marks failures of thread-level operations (replies, status,
	// prompts, title).
	ErrThread = errors.New("slack thread error")
)
