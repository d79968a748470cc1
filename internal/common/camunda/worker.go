// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
	"portfolio-workers/internal/common/observability"
	"portfolio-workers/internal/common/validation"
)

// JobHandler is implemented by every worker package's Handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobSpec tells the runner how to process one task type.
type JobSpec struct {
	TaskType string
	Schema   validation.JSONSchema
	Timeout  time.Duration
	// Execute decodes the variables and runs the operation. Its result
	// becomes the job's output variables.
	Execute func(ctx context.Context, variables string) (interface{}, error)
}

// JobRunner validates, executes and completes jobs, routing failures through
// the ErrorHandler.
type JobRunner struct {
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	obs          *observability.Observability
	retry        *RetryConfig
}

func NewJobRunner(log logger.Logger, obs *observability.Observability) *JobRunner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &JobRunner{
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
		obs:          obs,
		retry:        DefaultRetryConfig,
	}
}

// DecodeVariables unmarshals job variables into T, reporting bad JSON as a
// validation error.
func DecodeVariables[T any](variables string) (*T, error) {
	var in T
	if err := json.Unmarshal([]byte(variables), &in); err != nil {
		return nil, apperrors.NewValidationError("variables", err.Error())
	}
	return &in, nil
}

func (r *JobRunner) Run(client worker.JobClient, job entities.Job, spec JobSpec) {
	log := r.logger.WithFields(map[string]interface{}{
		"taskType":    spec.TaskType,
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	log.Info("processing job", nil)

	metrics.WorkerJobsActive.WithLabelValues(spec.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(spec.TaskType).Dec()

	start := time.Now()
	output, err := r.Process(context.Background(), job.Variables, spec)
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(spec.TaskType).Observe(elapsed.Seconds())

	if err != nil {
		code := apperrors.Normalize(err).Code
		metrics.WorkerJobsFailed.WithLabelValues(spec.TaskType, string(code)).Inc()
		r.obs.RecordJobProcessed(context.Background(), spec.TaskType, "failed")
		r.obs.RecordJobDuration(context.Background(), spec.TaskType, elapsed, "failed")
		r.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	if err := r.complete(client, job, output); err != nil {
		log.Error("failed to complete job", map[string]interface{}{"error": err.Error()})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(spec.TaskType).Inc()
	r.obs.RecordJobProcessed(context.Background(), spec.TaskType, "completed")
	r.obs.RecordJobDuration(context.Background(), spec.TaskType, elapsed, "completed")
	log.Info("job completed", map[string]interface{}{"durationMs": elapsed.Milliseconds()})
}

// Process validates variables against the spec's schema and executes the
// operation under the spec's timeout.
func (r *JobRunner) Process(ctx context.Context, variables string, spec JobSpec) (interface{}, error) {
	if variables == "" {
		variables = "{}"
	}
	if err := validation.ValidateJSON(variables, spec.Schema).Err(); err != nil {
		return nil, err
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}
	return spec.Execute(ctx, variables)
}

// complete retries transient gateway failures. The operation has already
// committed by the time it runs.
func (r *JobRunner) complete(client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = withRetry(context.Background(), r.retry, "complete-job", func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	})
	return err
}

// CamundaWorker is one open job subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	Name          string
}

func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle)
	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}
	if opts.Name != "" {
		step = step.Name(opts.Name)
	}

	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeoutMs":     opts.Timeout.Milliseconds(),
	})

	return &CamundaWorker{
		worker:   step.Open(),
		logger:   log,
		taskType: taskType,
	}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
