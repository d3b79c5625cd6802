/**
 * Queue Consumer for the OCR Worker
 *
 * Consumes recognition and export jobs from Redis. Uses Asynq for queue
 * management. Recognition stores its result in the session store; export
 * reads it back and hands it to the export coordinator.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/henryLiu9527/invoice-ocr/internal/engine"
	"github.com/henryLiu9527/invoice-ocr/internal/export"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
	"github.com/henryLiu9527/invoice-ocr/internal/store"
)

const (
	TaskTypeRecognize = "ocr:recognize"
	TaskTypeExport    = "ocr:export"
)

// RecognizeJob asks the worker to recognize one uploaded image.
type RecognizeJob struct {
	JobID        string `json:"jobId"`
	SessionID    string `json:"sessionId"`
	Filename     string `json:"filename"`
	ImagePath    string `json:"imagePath"`
	DocumentType string `json:"documentType,omitempty"`
}

// ExportJob asks the worker to export a previously recognized result.
type ExportJob struct {
	JobID            string `json:"jobId"`
	SessionID        string `json:"sessionId"`
	Filename         string `json:"filename"`
	OriginalFileName string `json:"originalFileName,omitempty"`
	Format           string `json:"format"`
	DocumentType     string `json:"documentType,omitempty"`
}

// Consumer routes queued jobs to the recognition manager and the export
// coordinator.
type Consumer struct {
	client      *asynq.Client
	server      *asynq.Server
	mux         *asynq.ServeMux
	manager     *engine.Manager
	normalizer  *normalize.Normalizer
	coordinator *export.Coordinator
	results     store.Store
	config      *ConsumerConfig
	logger      *logging.Logger
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Manager     *engine.Manager
	Normalizer  *normalize.Normalizer
	Coordinator *export.Coordinator
	Results     store.Store
	// Job timeout in milliseconds, 5 minutes when zero.
	ProcessingTimeout int64
}

// NewConsumer creates a new queue consumer.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Manager == nil {
		return nil, fmt.Errorf("Manager is required")
	}
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("Coordinator is required")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("Results store is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("QueueConsumer")
	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff: 5s, 10s, 20s, capped at 60s
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error",
					"type", task.Type(), "error", err.Error())
			}),
		},
	)

	mux := asynq.NewServeMux()

	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer()
	}

	consumer := &Consumer{
		client:      client,
		server:      server,
		mux:         mux,
		manager:     cfg.Manager,
		normalizer:  normalizer,
		coordinator: cfg.Coordinator,
		results:     cfg.Results,
		config:      cfg,
		logger:      logger,
	}

	mux.HandleFunc(TaskTypeRecognize, consumer.handleRecognize)
	mux.HandleFunc(TaskTypeExport, consumer.handleExport)

	return consumer, nil
}

// Start starts the queue consumer.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer",
		"concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("Queue consumer error", "error", err.Error())
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	c.logger.Info("Queue consumer stopped")
	return nil
}

// EnqueueRecognize submits a recognition job.
func (c *Consumer) EnqueueRecognize(ctx context.Context, job *RecognizeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal recognize job: %w", err)
	}
	_, err = c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeRecognize, payload),
		asynq.Queue(c.config.QueueName))
	if err != nil {
		return fmt.Errorf("failed to enqueue recognize job: %w", err)
	}
	return nil
}

// EnqueueExport submits an export job.
func (c *Consumer) EnqueueExport(ctx context.Context, job *ExportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal export job: %w", err)
	}
	_, err = c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeExport, payload),
		asynq.Queue(c.config.QueueName))
	if err != nil {
		return fmt.Errorf("failed to enqueue export job: %w", err)
	}
	return nil
}

func (c *Consumer) jobTimeout() time.Duration {
	if c.config.ProcessingTimeout > 0 {
		return time.Duration(c.config.ProcessingTimeout) * time.Millisecond
	}
	return 5 * time.Minute
}

// handleRecognize runs one image through the engine manager and stores
// the result for the session. A failed recognition is still a completed
// job: the result records the failure and the export surface shows it.
func (c *Consumer) handleRecognize(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job RecognizeJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal recognize job: %w", err)
	}

	c.logger.Info("Recognizing document",
		"jobId", job.JobID, "filename", job.Filename, "documentType", job.DocumentType)

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout())
	defer cancel()

	docType := engine.DocumentType(job.DocumentType)
	if docType == "" {
		docType = engine.DocTypeAuto
	}

	result := c.manager.Recognize(jobCtx, job.ImagePath, docType)

	if err := c.results.Put(ctx, job.SessionID, job.Filename, result); err != nil {
		return fmt.Errorf("failed to store recognition result: %w", err)
	}

	c.logger.Info("Recognition job finished",
		"jobId", job.JobID,
		"engine", string(result.Engine),
		"success", result.Success,
		"durationMs", time.Since(startTime).Milliseconds())
	return nil
}

// handleExport reads the stored result for the session and exports it in
// the requested format. A missing result is terminal: retrying will not
// make it appear.
func (c *Consumer) handleExport(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job ExportJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal export job: %w", err)
	}

	c.logger.Info("Exporting result",
		"jobId", job.JobID, "filename", job.Filename, "format", job.Format)

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout())
	defer cancel()

	result, err := c.results.Get(jobCtx, job.SessionID, job.Filename)
	if err == store.ErrNotFound {
		c.logger.Error("No stored result for export",
			"jobId", job.JobID, "sessionId", job.SessionID, "filename", job.Filename)
		return fmt.Errorf("no result for %s/%s: %w", job.SessionID, job.Filename, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to load recognition result: %w", err)
	}

	docType := engine.DocumentType(job.DocumentType)
	if docType == "" {
		docType = result.DocumentType
	}

	originalFile := job.OriginalFileName
	if originalFile == "" {
		originalFile = job.Filename
	}

	doc := c.normalizer.Normalize(result, docType)
	artifact, err := c.coordinator.Export(jobCtx, export.Request{
		Document:     doc,
		RawResult:    result,
		OriginalFile: originalFile,
		Engine:       string(result.Engine),
		DocumentType: string(docType),
		Format:       export.Format(job.Format),
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	c.logger.Info("Export job finished",
		"jobId", job.JobID,
		"path", artifact.Path,
		"format", string(artifact.Format),
		"durationMs", time.Since(startTime).Milliseconds())
	return nil
}
