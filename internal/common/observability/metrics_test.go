package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsOutcome(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("portfolio-workers-test",
		WithRegisterer(promclient.NewRegistry()),
		WithSpanProcessor(recorder),
	)
	defer obs.Shutdown(context.Background())

	_, end := obs.StartSpan(context.Background(), "submission.sign_off", attribute.String("submissionId", "s-1"))
	end(nil)
	_, end = obs.StartSpan(context.Background(), "sampling.sample")
	end(errors.New("not eligible"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "submission.sign_off", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestRecordJobMetrics_ExportedToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := New("portfolio-workers-test", WithRegisterer(reg))
	defer obs.Shutdown(context.Background())

	obs.RecordJobProcessed(context.Background(), "sign-off", "completed")
	obs.RecordJobDuration(context.Background(), "sign-off", 25*time.Millisecond, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "jobs_processed") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNilAndNoopAreSafe(t *testing.T) {
	var nilObs *Observability
	_, end := nilObs.StartSpan(context.Background(), "anything")
	end(nil)
	nilObs.RecordJobProcessed(context.Background(), "x", "y")

	obs := NewNoop()
	_, end = obs.StartSpan(context.Background(), "anything")
	end(errors.New("boom"))
	obs.Shutdown(context.Background())
}
