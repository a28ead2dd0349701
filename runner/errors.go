// File: runner/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package runner

import "errors"

// ErrRunnerStopped is returned by Call when the worker goroutine exits
// before it can reach the queued request.
var ErrRunnerStopped = errors.New("runner: stopped before call could run")
