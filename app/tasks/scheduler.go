package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedgate/app/cfg"
	"feedgate/app/hub"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	notifier    *hub.Notifier
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(notifier *hub.Notifier) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		notifier:    notifier,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.probeHub()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	// reject before the send; the queue is closed once Stop returns
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// probeHub is diagnostics only; an unreachable hub is logged, not retried.
func (s *Scheduler) probeHub() {
	if s.notifier == nil {
		return
	}

	if s.notifier.Probe(s.ctx) {
		slog.Debug("Hub probe succeeded")
	} else {
		slog.Warn("Hub probe failed, publish notifications may not be delivered")
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
