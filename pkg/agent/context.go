package agent

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// BuildSystemTurn composes the system prompt for a new conversation: a
// host-info preamble followed by the configured system message. It is
// produced once per chat and never replaced.
func BuildSystemTurn(systemMessage string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	now := time.Now().Format("2006-01-02 15:04 (Monday)")

	preamble := fmt.Sprintf(
		"You are running on host %s (%s/%s, Go %s). Current time: %s.",
		hostname, runtime.GOOS, runtime.GOARCH, runtime.Version(), now,
	)

	if systemMessage == "" {
		return preamble
	}
	return preamble + "\n\n" + systemMessage
}
