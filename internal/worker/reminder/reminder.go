// Package reminder は終了間近イベントのリマインダージョブを提供する。
// 一定間隔でウィンドウ内に終了するイベントを検出し、ログとメトリクスに記録する。
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/eventman/internal/repository"
)

// MetricsRecorder はリマインダージョブが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordReminderRun(eventCount int)
}

// Job は終了間近イベントの検出ジョブ。
// ワーカープロセスモードで定期実行される。冪等で、検出対象がなくてもエラーにならない。
type Job struct {
	eventRepo repository.EventRepository
	logger    *slog.Logger
	metrics   MetricsRecorder
	window    time.Duration
	now       func() time.Time
}

// NewJob は新しいJobを生成する。metricsはnil可。
// windowが0以下の場合はデフォルト値1時間を使用する。
func NewJob(eventRepo repository.EventRepository, logger *slog.Logger, metrics MetricsRecorder, window time.Duration) *Job {
	if window <= 0 {
		window = time.Hour
	}
	return &Job{
		eventRepo: eventRepo,
		logger:    logger,
		metrics:   metrics,
		window:    window,
		now:       time.Now,
	}
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("リマインダージョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("window", j.window),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("リマインダーサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("リマインダージョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("リマインダーサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はウィンドウ内に終了する未削除イベントを1回検出する。
func (j *Job) RunOnce(ctx context.Context) error {
	start := j.now()

	events, err := j.eventRepo.ListEndingSoon(ctx, start, start.Add(j.window))
	if err != nil {
		return err
	}

	for _, ev := range events {
		j.logger.Info("イベントが間もなく終了します",
			slog.String("event_id", ev.ID),
			slog.String("title", ev.Title),
			slog.Time("end_time", ev.EndTime),
		)
	}

	if j.metrics != nil {
		j.metrics.RecordReminderRun(len(events))
	}

	duration := time.Since(start)
	j.logger.Info("リマインダーサイクルが完了しました",
		slog.Int("event_count", len(events)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
