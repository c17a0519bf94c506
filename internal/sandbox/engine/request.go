package engine

import "execbox/internal/sandbox/spec"

// isolationProfile describes namespace and seccomp settings passed to the
// sandbox-init helper.
type isolationProfile struct {
	RootFS         string
	SeccompProfile string
	DisableNetwork bool
}

// initRequest is the JSON document piped to sandbox-init over stdin.
type initRequest struct {
	RunSpec           spec.RunSpec
	Isolation         isolationProfile
	ScratchLimitBytes int64
	EnableSeccomp     bool
	EnableNs          bool
}
