package driven

import (
	"time"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// MetricsRecorder receives service-level measurements.
// A nil recorder must be accepted by every service.
type MetricsRecorder interface {
	ObserveLoad(backend domain.BackendKind, loaded, failed, triples int)
	ObserveQuery(backend domain.BackendKind, err error, d time.Duration)
	ObserveResolve(n int)
}
