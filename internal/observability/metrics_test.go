package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordTransition("launch", "idle", "launching")
	RecordDroppedDispatch("connectivity")
	RecordConsolidation()
	RecordResolution(true, 24*time.Millisecond)
	RecordResolution(false, 5*time.Millisecond)
	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
}
