// Package notification posts portal events to a chat webhook from a pool of workers.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/approval-portal/internal/core/user"
)

type Job struct {
	EventID    string
	EventType  string
	Text       string
	Link       string
	Recipients []string
}

type Message struct {
	Text       string   `json:"text"`
	Event      string   `json:"event"`
	EventID    string   `json:"event_id"`
	Link       string   `json:"link,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

var ErrQueueFull = errors.New("notification queue full")

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "event_id", job.EventID)
				process(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// People resolves recipient ids to names for the message body.
type People interface {
	Profile(ctx context.Context, id int64) (*user.Profile, error)
}

type Config struct {
	WebhookURL   string
	PortalURL    string
	Timeout      time.Duration
	MaxWorkers   int
	JobQueueSize int
}

type Notifier struct {
	webhookURL string
	portalURL  string
	httpClient *http.Client
	people     People
	logger     *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
	pending    sync.WaitGroup
}

func NewNotifier(cfg Config, people People, logger *slog.Logger) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.JobQueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	n := &Notifier{
		webhookURL: cfg.WebhookURL,
		portalURL:  cfg.PortalURL,
		httpClient: &http.Client{Timeout: timeout},
		people:     people,
		logger:     logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	n.start()
	return n
}

func (n *Notifier) start() {
	n.once.Do(func() {
		for i := 0; i < n.maxWorkers; i++ {
			NewWorker(i, n.workerPool, n.logger).Start(n.ctx, &n.wg, n.send)
		}

		n.wg.Add(1)
		go n.dispatch()

		n.logger.Info("notification worker pool started",
			"max_workers", n.maxWorkers,
			"queue_size", cap(n.jobQueue),
			"enabled", n.webhookURL != "")
	})
}

func (n *Notifier) dispatch() {
	defer n.wg.Done()

	for {
		select {
		case job := <-n.jobQueue:
			select {
			case jobChannel := <-n.workerPool:
				select {
				case jobChannel <- job:
				case <-n.ctx.Done():
					return
				}
			case <-n.ctx.Done():
				return
			}
		case <-n.ctx.Done():
			n.logger.Info("notification dispatcher shutting down", "pending", len(n.jobQueue))
			return
		}
	}
}

// Enqueue hands a job to the pool without blocking.
func (n *Notifier) Enqueue(job Job) error {
	if n.webhookURL == "" {
		n.logger.Debug("notification webhook not configured, dropping", "event_id", job.EventID)
		return nil
	}
	n.pending.Add(1)
	select {
	case n.jobQueue <- job:
		return nil
	default:
		n.pending.Done()
		n.logger.Warn("notification queue full, dropping", "event_id", job.EventID, "queue_capacity", cap(n.jobQueue))
		return ErrQueueFull
	}
}

// Flush waits until every accepted job has been delivered or dropped, or ctx ends.
func (n *Notifier) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) Shutdown() {
	n.stopOnce.Do(func() {
		n.logger.Info("shutting down notifier")
		n.cancel()
		n.wg.Wait()
	})
}

func (n *Notifier) send(job Job) {
	defer n.pending.Done()

	body, err := json.Marshal(Message{
		Text:       job.Text,
		Event:      job.EventType,
		EventID:    job.EventID,
		Link:       job.Link,
		Recipients: job.Recipients,
	})
	if err != nil {
		n.logger.Error("failed to encode notification", "error", err, "event_id", job.EventID)
		return
	}

	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed", "error", err, "event_id", job.EventID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification webhook refused message",
			"status", resp.StatusCode,
			"event_id", job.EventID,
			"event_type", job.EventType)
		return
	}
	n.logger.Debug("notification delivered", "event_id", job.EventID, "event_type", job.EventType)
}

func (n *Notifier) documentLink(id int64) string {
	if n.portalURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/documents/%d", n.portalURL, id)
}
