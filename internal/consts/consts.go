package consts

import "time"

// Buffer sizes for subprocess and socket I/O
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize4KB is 4 kilobytes
	BufferSize4KB = 4 * 1024
)

// Timeouts for various operations
const (
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
	// Timeout5Minutes is a 5 minute timeout
	Timeout5Minutes = 5 * time.Minute
	// Timeout10Minutes is a 10 minute timeout
	Timeout10Minutes = 10 * time.Minute
)

// OAuth token lifecycle windows
const (
	// TokenRefreshHorizon is how close to expiry a token may get before
	// it is refreshed instead of handed out.
	TokenRefreshHorizon = Timeout5Minutes
	// PendingFlowTTL is how long an authorization flow may stay open
	// before completion attempts fail closed.
	PendingFlowTTL = Timeout10Minutes
)

// Approval broker windows
const (
	// ApprovalTimeout is the default-deny window for a pending tool approval.
	ApprovalTimeout = Timeout5Minutes
)
