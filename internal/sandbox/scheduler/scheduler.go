// Package scheduler admits, queues and dispatches execution jobs.
//
// All admission decisions (concurrency ceiling, FIFO queue, per-caller
// quotas) go through a single arbiter goroutine fed by message channels,
// so the ceiling can never be over-admitted and FIFO order is trivial to
// maintain. Workers report completion back through the same arbiter.
package scheduler

import (
	"context"

	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/spec"
	appErr "execbox/pkg/errors"
	"execbox/pkg/utils/logger"

	"go.uber.org/zap"
)

// Executor runs one admitted job to completion.
type Executor interface {
	Execute(ctx context.Context, jobID string, req spec.ExecutionRequest) result.ExecutionResult
}

// Config bounds the scheduler.
type Config struct {
	// MaxConcurrentJobs is the global ceiling on simultaneously running
	// jobs.
	MaxConcurrentJobs int `yaml:"maxConcurrentJobs"`
	// MaxQueueLength bounds the FIFO queue; requests beyond it are shed
	// with Overloaded instead of buffered.
	MaxQueueLength int `yaml:"maxQueueLength"`
	// PerCallerQuota caps one caller's queued plus running jobs. Zero
	// disables the quota.
	PerCallerQuota int `yaml:"perCallerQuota"`
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 1
	}
	if c.MaxQueueLength < 0 {
		c.MaxQueueLength = 0
	}
	return c
}

// Stats is a point-in-time snapshot of scheduler load.
type Stats struct {
	Running int `json:"running"`
	Queued  int `json:"queued"`
}

type submitMsg struct {
	job   *job
	reply chan error
}

type cancelMsg struct {
	jobID string
	// reply is true when the job was still queued and simply removed.
	reply chan bool
}

// Scheduler is the single serialization point for admission decisions.
type Scheduler struct {
	cfg  Config
	exec Executor

	submitCh  chan submitMsg
	cancelCh  chan cancelMsg
	doneCh    chan *job
	statsCh   chan chan Stats
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a scheduler; Start must be called before Submit.
func New(cfg Config, exec Executor) *Scheduler {
	return &Scheduler{
		cfg:       cfg.withDefaults(),
		exec:      exec,
		submitCh:  make(chan submitMsg),
		cancelCh:  make(chan cancelMsg),
		doneCh:    make(chan *job),
		statsCh:   make(chan chan Stats),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the arbiter goroutine.
func (s *Scheduler) Start() {
	go s.arbiter()
}

// Stop stops admitting jobs, sheds the queue and waits for running jobs
// to finish, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stopCh)
	select {
	case <-s.stoppedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit admits one request and blocks until its result is available or
// ctx is cancelled. Admission rejections return an error carrying one of
// the admission codes; an admitted job always yields exactly one outcome.
func (s *Scheduler) Submit(ctx context.Context, req spec.ExecutionRequest) (result.ExecutionResult, error) {
	j := newJob(req)
	msg := submitMsg{job: j, reply: make(chan error, 1)}

	select {
	case s.submitCh <- msg:
	case <-s.stoppedCh:
		return result.ExecutionResult{}, appErr.New(appErr.SchedulerStopped)
	case <-ctx.Done():
		return result.ExecutionResult{}, ctx.Err()
	}
	if err := <-msg.reply; err != nil {
		return result.ExecutionResult{}, err
	}

	select {
	case out := <-j.outcomeCh:
		return out.res, out.err
	case <-ctx.Done():
		s.requestCancel(j.id)
		// A queued job is gone at zero cost; a running one is being
		// force-terminated and will release its slot on completion.
		return result.ExecutionResult{}, ctx.Err()
	}
}

// Stats reports current load; used by the health endpoint.
func (s *Scheduler) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case s.statsCh <- reply:
		return <-reply
	case <-s.stoppedCh:
		return Stats{}
	}
}

func (s *Scheduler) requestCancel(jobID string) bool {
	msg := cancelMsg{jobID: jobID, reply: make(chan bool, 1)}
	select {
	case s.cancelCh <- msg:
		return <-msg.reply
	case <-s.stoppedCh:
		return false
	}
}

func (s *Scheduler) arbiter() {
	var queue []*job
	running := make(map[string]*job)
	inflight := make(map[string]int)
	stopping := false

	maybeFinish := func() bool {
		if stopping && len(running) == 0 && len(queue) == 0 {
			close(s.stoppedCh)
			return true
		}
		return false
	}

	for {
		select {
		case msg := <-s.submitCh:
			if stopping {
				msg.reply <- appErr.New(appErr.SchedulerStopped)
				continue
			}
			msg.reply <- s.admit(msg.job, &queue, running, inflight)

		case msg := <-s.cancelCh:
			msg.reply <- s.cancelJob(msg.jobID, &queue, running, inflight)

		case j := <-s.doneCh:
			j.state = StateCompleted
			j.cancel()
			delete(running, j.id)
			decInflight(inflight, j.req.CallerID)
			s.dispatch(&queue, running)
			if maybeFinish() {
				return
			}

		case reply := <-s.statsCh:
			reply <- Stats{Running: len(running), Queued: len(queue)}

		case <-s.stopCh:
			stopping = true
			s.stopCh = nil // fire once
			for _, j := range queue {
				j.state = StateCancelled
				decInflight(inflight, j.req.CallerID)
				j.outcomeCh <- outcome{err: appErr.New(appErr.SchedulerStopped)}
			}
			queue = nil
			if maybeFinish() {
				return
			}
		}
	}
}

// admit applies the admission policy: per-caller quota first, then a free
// slot, then the bounded queue, then load shedding.
func (s *Scheduler) admit(j *job, queue *[]*job, running map[string]*job, inflight map[string]int) error {
	caller := j.req.CallerID
	if s.cfg.PerCallerQuota > 0 && inflight[caller] >= s.cfg.PerCallerQuota {
		return appErr.Newf(appErr.QuotaExceeded,
			"caller %s has %d jobs in flight", caller, inflight[caller])
	}
	if len(running) < s.cfg.MaxConcurrentJobs {
		inflight[caller]++
		s.startJob(j, running)
		return nil
	}
	if len(*queue) < s.cfg.MaxQueueLength {
		inflight[caller]++
		j.state = StateQueued
		*queue = append(*queue, j)
		return nil
	}
	return appErr.New(appErr.Overloaded)
}

// dispatch grants free slots to queued jobs in strict FIFO admission order.
func (s *Scheduler) dispatch(queue *[]*job, running map[string]*job) {
	for len(*queue) > 0 && len(running) < s.cfg.MaxConcurrentJobs {
		next := (*queue)[0]
		*queue = (*queue)[1:]
		s.startJob(next, running)
	}
}

func (s *Scheduler) startJob(j *job, running map[string]*job) {
	j.state = StateRunning
	running[j.id] = j
	go func() {
		res := s.exec.Execute(j.ctx, j.id, j.req)
		j.outcomeCh <- outcome{res: res}
		s.doneCh <- j
	}()
}

func (s *Scheduler) cancelJob(jobID string, queue *[]*job, running map[string]*job, inflight map[string]int) bool {
	for i, j := range *queue {
		if j.id != jobID {
			continue
		}
		*queue = append((*queue)[:i], (*queue)[i+1:]...)
		j.state = StateCancelled
		j.cancel()
		decInflight(inflight, j.req.CallerID)
		logger.Debug(j.ctx, "queued job cancelled", zap.String("job_id", jobID))
		return true
	}
	if j, ok := running[jobID]; ok {
		// Same forced-termination path as a limiter breach; the worker
		// completes normally and releases the slot through doneCh.
		j.cancel()
	}
	return false
}

func decInflight(inflight map[string]int, caller string) {
	if inflight[caller] <= 1 {
		delete(inflight, caller)
		return
	}
	inflight[caller]--
}
