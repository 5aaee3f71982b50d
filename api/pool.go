package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"coaching-api/domain"
)

// PublisherConfig sizes the activity worker pool.
type PublisherConfig struct {
	Workers        int
	Buffer         int
	EnqueueTimeout time.Duration
	HandoffTimeout time.Duration
}

// DefaultPublisherConfig mirrors the values used when nothing is configured.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Workers:        8,
		Buffer:         1024,
		EnqueueTimeout: 30 * time.Second,
		HandoffTimeout: 15 * time.Millisecond,
	}
}

var activityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "coaching_api",
	Subsystem: "activity",
	Name:      "events_total",
	Help:      "Activity events by delivery outcome.",
}, []string{"result"})

type publishJob struct {
	event domain.ActivityEvent
	added bool // key recorded in the deduper, rolled back on failure
}

// ActivityPublisher delivers activity events in the background. Delivery is
// best-effort: failures are logged and never reach the request that caused
// the event. A nil publisher drops everything.
type ActivityPublisher struct {
	sink    ActivitySink
	deduper Deduper
	log     *log.Logger
	cfg     PublisherConfig

	jobs      chan publishJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewActivityPublisher starts the worker pool. deduper may be nil.
func NewActivityPublisher(sink ActivitySink, deduper Deduper, cfg PublisherConfig, logger *log.Logger) *ActivityPublisher {
	if sink == nil {
		return nil
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	def := DefaultPublisherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = def.EnqueueTimeout
	}

	p := &ActivityPublisher{
		sink:    sink,
		deduper: deduper,
		log:     logger,
		cfg:     cfg,
		jobs:    make(chan publishJob, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Infof("activity publisher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.EnqueueTimeout, cfg.HandoffTimeout)
	return p
}

// Close stops accepting events and waits for queued ones to drain.
func (p *ActivityPublisher) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

// Publish stamps and hands an event to the pool. When the buffer stays full
// past the handoff timeout the event is sent inline.
func (p *ActivityPublisher) Publish(ctx context.Context, ev domain.ActivityEvent) {
	if p == nil {
		return
	}
	if ev.IdempotencyKey == "" {
		ev.IdempotencyKey = uuid.NewString()
	}
	ev.Timestamp = nextTimestamp()

	job := publishJob{event: ev}
	if p.deduper != nil {
		added, err := p.deduper.Add(ctx, ev.OrgID, ev.IdempotencyKey)
		if err != nil {
			p.log.WithError(err).WithField("key", ev.IdempotencyKey).Warn("activity dedupe unavailable")
		} else if !added {
			activityEvents.WithLabelValues("duplicate").Inc()
			p.log.WithField("key", ev.IdempotencyKey).Debug("duplicate activity event dropped")
			return
		}
		job.added = added
	}

	if p.tryEnqueue(job) {
		return
	}
	activityEvents.WithLabelValues("inline").Inc()
	p.log.Warn("activity buffer saturated; publishing inline")
	p.send(-1, job)
}

func (p *ActivityPublisher) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.send(id, j)
	}
}

func (p *ActivityPublisher) send(worker int, j publishJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.EnqueueTimeout)
	err := p.sink.EnqueueActivity(ctx, []domain.ActivityEvent{j.event})
	cancel()
	if err == nil {
		activityEvents.WithLabelValues("sent").Inc()
		return
	}
	activityEvents.WithLabelValues("failed").Inc()

	if j.added {
		if rerr := p.deduper.Remove(context.Background(), j.event.OrgID, j.event.IdempotencyKey); rerr != nil {
			p.log.Errorf("dedupe rollback failed, err: %v, key: %s, org: %s", rerr, j.event.IdempotencyKey, j.event.OrgID)
		}
	}
	p.log.WithFields(log.Fields{
		"type":   j.event.Type,
		"org":    j.event.OrgID,
		"worker": worker,
	}).Errorf("activity enqueue failed: %v", err)
}

func (p *ActivityPublisher) tryEnqueue(job publishJob) bool {
	if ok, closed := trySendNonBlocking(p.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if p.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(p.cfg.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(p.jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan publishJob, job publishJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan publishJob, job publishJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
