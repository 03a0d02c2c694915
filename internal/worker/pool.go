package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
)

var ErrPoolStopped = errors.New("mail pool stopped")

type sendResult struct {
	messageID string
	err       error
}

// sendJob is one message waiting for a worker.
type sendJob struct {
	ctx    context.Context
	sender domain.Sender
	msg    domain.Message
	result chan sendResult
}

// Pool manages a fixed number of worker goroutines that hand messages to
// the underlying mailer. It implements engine.Mailer, so the number of SMTP
// sessions open at once never exceeds the worker count.
type Pool struct {
	numWorkers int
	jobs       chan sendJob
	mailer     engine.Mailer
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, mailer engine.Mailer, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan sendJob, numWorkers*2),
		mailer:     mailer,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed.
func (p *Pool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("mail pool started", "num_workers", p.numWorkers)
}

// Send queues msg and waits for a worker to deliver it. Giving up on ctx
// while queued drops the job before it reaches the mailer.
func (p *Pool) Send(ctx context.Context, sender domain.Sender, msg domain.Message) (string, error) {
	job := sendJob{
		ctx:    ctx,
		sender: sender,
		msg:    msg,
		result: make(chan sendResult, 1),
	}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return "", ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return "", ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.messageID, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop closes the jobs channel and waits for queued sends to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("mail pool stopped")
}

// worker is a single goroutine that processes jobs from the channel.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if err := job.ctx.Err(); err != nil {
			job.result <- sendResult{err: err}
			continue
		}
		messageID, err := p.mailer.Send(job.ctx, job.sender, job.msg)
		if err != nil {
			p.logger.Debug("mail worker send failed", "worker", id, "sender_id", job.sender.ID, "error", err)
		}
		job.result <- sendResult{messageID: messageID, err: err}
	}
}
