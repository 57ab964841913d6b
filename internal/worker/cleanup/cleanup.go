// Package cleanup は期限切れのセッションと共有リンクを削除するバッチジョブを提供する。
// 削除は冪等で、対象がない場合もエラーにならない。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// KindSessions は期限切れセッションの削除対象を表す。
	KindSessions = "sessions"
	// KindShares は期限切れ共有リンクの削除対象を表す。
	KindShares = "shares"
)

// Purger は期限切れの行を削除し、削除件数を返す。
// SessionRepositoryとShareRepositoryが満たす。
type Purger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Recorder は削除件数をメトリクスに記録する。
type Recorder interface {
	RecordCleanup(kind string, deleted int64)
}

// Target は削除対象の種類とその削除処理の組。
type Target struct {
	Kind   string
	Purger Purger
}

// CleanupJob は登録された対象の期限切れデータを順に削除する。
type CleanupJob struct {
	targets  []Target
	recorder Recorder
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(targets []Target, recorder Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		targets:  targets,
		recorder: recorder,
		logger:   logger,
	}
}

// Run はすべての対象を削除する。
// 1つの対象が失敗しても残りの対象は実行し、失敗をまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	var errs []error
	for _, t := range j.targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.runTarget(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *CleanupJob) runTarget(ctx context.Context, t Target) error {
	start := time.Now()

	deleted, err := t.Purger.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("cleanup failed",
			slog.String("kind", t.Kind),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to clean up %s: %w", t.Kind, err)
	}

	if j.recorder != nil {
		j.recorder.RecordCleanup(t.Kind, deleted)
	}
	j.logger.Info("cleanup completed",
		slog.String("kind", t.Kind),
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
