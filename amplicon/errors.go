package amplicon

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument reports arguments rejected before any work starts.
var ErrInvalidArgument = errors.New("invalid argument")

// LowCoverageError reports a search in which no worker produced a valid
// partition.  The caller may retry with more iterations or looser coverage
// thresholds.
type LowCoverageError struct {
	// Iterations and Threads are the arguments of the search.
	Iterations, Threads int
	// Rejected is the number of trials rejected after exhausting the
	// resampling bound.
	Rejected int
	// Segments is the number of covered stretches long enough to hold a window.
	Segments int
	// Reason names the constraint that failed.
	Reason string
}

func (e *LowCoverageError) Error() string {
	return fmt.Sprintf("low coverage: %s (%d iterations, %d threads, %d trials rejected, %d eligible segments)",
		e.Reason, e.Iterations, e.Threads, e.Rejected, e.Segments)
}
