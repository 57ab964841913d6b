package cleanup

import (
	"context"
	"log/slog"
	"time"
)

const (
	// initialRetryDelay は失敗後の初回リトライ遅延。
	initialRetryDelay = time.Minute
)

// Runner は1回分のジョブを実行する。
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler はジョブを一定間隔で実行する。
// 起動直後に1回実行し、失敗した場合は指数バックオフで通常の間隔より早く再実行する。
type Scheduler struct {
	job    Runner
	logger *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(job Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{job: job, logger: logger}
}

// Start はコンテキストがキャンセルされるまでジョブを繰り返し実行する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("cleanup scheduler started", slog.Duration("interval", interval))

	failures := 0
	for {
		if err := s.job.Run(ctx); err != nil && ctx.Err() == nil {
			failures++
			s.logger.Error("cleanup cycle failed",
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()),
			)
		} else {
			failures = 0
		}

		timer := time.NewTimer(NextDelay(failures, interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("cleanup scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// NextDelay は次回実行までの待ち時間を返す。
// 連続失敗がなければinterval、あれば1分から倍々に増やしintervalで頭打ちにする。
func NextDelay(consecutiveFailures int, interval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return interval
	}
	delay := initialRetryDelay
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= interval {
			return interval
		}
	}
	if delay > interval {
		return interval
	}
	return delay
}
