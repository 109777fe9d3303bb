// Package workerid derives the stable worker identity sent on every claim
// call, grounded on the reference worker's hostname-or-PID-derived pod ID
// plus a short random suffix so two processes on the same host never
// collide.
package workerid

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// New returns a worker identity combining the host's name (falling back to
// its PID if the hostname can't be resolved) with a short random suffix.
func New() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid-%d", os.Getpid())
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
