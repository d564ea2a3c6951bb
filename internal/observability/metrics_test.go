package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/refctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("refctl", "GET", "/state", 200, 12*time.Millisecond)
	RecordBroadcast(nil)
	RecordBroadcast(errors.New("network unreachable"))
	RecordDecodeError("return_data", "bad_magic")
	RecordReturnMessage("alive", "accepted")
	SetPendingRequests(2)
	RecordDirective("ready", nil)
	RecordSequenceEvent("lost", 3)
	RecordSequenceEvent("lost", 0)

	log.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}
