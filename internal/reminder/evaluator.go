// Package reminder 实现上课提醒的周期扫描。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kcbxt/internal/schedule"
)

// Lister 提供对全部已持久化课程表的遍历，由 schedule.FileStore 实现。
type Lister interface {
	ForEach(fn func(userID string, sched schedule.UserSchedule)) error
}

// Notifier 把一条提醒消息投递到宿主机器人侧的会话目标。
type Notifier interface {
	Notify(ctx context.Context, target, message string) error
}

// Evaluator 每隔固定间隔做一次全量扫描：对每个用户课程表中今天的课程，
// 解析上课时刻，落在提前量窗口内（0 < delta ≤ lookahead）即发出提醒。
//
// 扫描之间天然互斥：一轮扫描完整结束后才开始休眠，不存在重叠。
// 同一节课在窗口内的多个 tick 上可能重复提醒，这是已知的 at-least-once 语义。
type Evaluator struct {
	store     Lister
	notifier  Notifier
	interval  time.Duration
	lookahead time.Duration
	logger    *slog.Logger

	// now 可注入，便于测试窗口边界。
	now func() time.Time
}

// NewEvaluator 构造提醒扫描器。interval/lookahead 必须为正。
func NewEvaluator(store Lister, notifier Notifier, interval, lookahead time.Duration, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		store:     store,
		notifier:  notifier,
		interval:  interval,
		lookahead: lookahead,
		logger:    logger,
		now:       time.Now,
	}
}

// Run 阻塞运行扫描循环，直到 ctx 取消。
func (e *Evaluator) Run(ctx context.Context) {
	e.logger.Info("reminder evaluator started",
		slog.Duration("interval", e.interval),
		slog.Duration("lookahead", e.lookahead),
	)
	for {
		e.Sweep(ctx)
		select {
		case <-ctx.Done():
			e.logger.Info("reminder evaluator stopped")
			return
		case <-time.After(e.interval):
		}
	}
}

// Sweep 执行一轮全量扫描。单个用户的文件或投递故障只记日志，不影响其他用户。
func (e *Evaluator) Sweep(ctx context.Context) {
	now := e.now()
	today := Today(now)

	err := e.store.ForEach(func(userID string, sched schedule.UserSchedule) {
		if sched.NotifyTarget == "" {
			return
		}
		for _, course := range sched.TodayCourses(today) {
			hour, minute, ok := Resolve(course.Time)
			if !ok {
				continue
			}
			classAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			delta := classAt.Sub(now)
			if delta <= 0 || delta > e.lookahead {
				continue
			}
			msg := FormatReminder(course)
			if err := e.notifier.Notify(ctx, sched.NotifyTarget, msg); err != nil {
				e.logger.Error("deliver reminder failed",
					slog.String("user_id", userID),
					slog.String("course", course.Course),
					slog.String("error", err.Error()),
				)
				continue
			}
			e.logger.Info("reminder emitted",
				slog.String("user_id", userID),
				slog.String("course", course.Course),
				slog.Duration("delta", delta),
			)
		}
	})
	if err != nil {
		e.logger.Error("sweep schedules failed", slog.String("error", err.Error()))
	}
}

// FormatReminder 生成发给用户的提醒文案。
func FormatReminder(c schedule.CourseEntry) string {
	return fmt.Sprintf("上课提醒：%s %s %s %s", c.Course, c.Time, c.Location, c.Teacher)
}
