package reminder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"kcbxt/internal/schedule"
)

type fakeLister struct {
	schedules map[string]schedule.UserSchedule
}

func (f *fakeLister) ForEach(fn func(userID string, sched schedule.UserSchedule)) error {
	for id, sched := range f.schedules {
		fn(id, sched)
	}
	return nil
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, target, message string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, target+"|"+message)
	return nil
}

// 2026-08-31 周一，07:56，距第1-2节（08:00）还有 4 分钟。
var testNow = time.Date(2026, 8, 31, 7, 56, 0, 0, time.Local)

func newTestEvaluator(lister Lister, notifier Notifier, now time.Time) *Evaluator {
	e := NewEvaluator(lister, notifier, time.Minute, 5*time.Minute, slog.Default())
	e.now = func() time.Time { return now }
	return e
}

func TestSweepFiresWithinWindow(t *testing.T) {
	lister := &fakeLister{schedules: map[string]schedule.UserSchedule{
		"u1": {
			Courses:      []schedule.CourseEntry{{Course: "高等数学", Time: "周一第1-2节", Location: "教学楼101", Teacher: "张老师"}},
			NotifyTarget: "group:1",
		},
	}}
	notifier := &recordingNotifier{}

	newTestEvaluator(lister, notifier, testNow).Sweep(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %v", notifier.sent)
	}
	want := "group:1|上课提醒：高等数学 周一第1-2节 教学楼101 张老师"
	if notifier.sent[0] != want {
		t.Fatalf("reminder = %q, want %q", notifier.sent[0], want)
	}
}

func TestSweepSkipsOutsideWindow(t *testing.T) {
	sched := schedule.UserSchedule{
		Courses:      []schedule.CourseEntry{{Course: "高等数学", Time: "周一第1-2节", Location: "教学楼101", Teacher: "张老师"}},
		NotifyTarget: "group:1",
	}
	cases := []struct {
		name string
		now  time.Time
	}{
		// 8:00 开课，7:54:59 时 delta = 301s > 300s。
		{"just beyond lookahead", time.Date(2026, 8, 31, 7, 54, 59, 0, time.Local)},
		// 课已经开始。
		{"class started", time.Date(2026, 8, 31, 8, 0, 1, 0, time.Local)},
		// 正好等于开课时刻，delta = 0 不提醒。
		{"exactly at class time", time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			lister := &fakeLister{schedules: map[string]schedule.UserSchedule{"u1": sched}}
			newTestEvaluator(lister, notifier, c.now).Sweep(context.Background())
			if len(notifier.sent) != 0 {
				t.Fatalf("expected no reminders, got %v", notifier.sent)
			}
		})
	}
}

func TestSweepSkipsOtherDaysAndUnknownPeriods(t *testing.T) {
	lister := &fakeLister{schedules: map[string]schedule.UserSchedule{
		"u1": {
			Courses: []schedule.CourseEntry{
				{Course: "体育", Time: "周二第1-2节", Location: "操场", Teacher: "刘老师"},
				{Course: "晚自习", Time: "周一第9-10节", Location: "教学楼101", Teacher: "班主任"},
			},
			NotifyTarget: "group:1",
		},
	}}
	notifier := &recordingNotifier{}

	newTestEvaluator(lister, notifier, testNow).Sweep(context.Background())

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders, got %v", notifier.sent)
	}
}

func TestSweepSkipsEmptyNotifyTarget(t *testing.T) {
	lister := &fakeLister{schedules: map[string]schedule.UserSchedule{
		"u1": {
			Courses: []schedule.CourseEntry{{Course: "高等数学", Time: "周一第1-2节", Location: "教学楼101", Teacher: "张老师"}},
		},
	}}
	notifier := &recordingNotifier{}

	newTestEvaluator(lister, notifier, testNow).Sweep(context.Background())

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders without notify target, got %v", notifier.sent)
	}
}

func TestSweepNotifierFailureDoesNotAbort(t *testing.T) {
	course := schedule.CourseEntry{Course: "高等数学", Time: "周一第1-2节", Location: "教学楼101", Teacher: "张老师"}
	lister := &fakeLister{schedules: map[string]schedule.UserSchedule{
		"u1": {Courses: []schedule.CourseEntry{course, course}, NotifyTarget: "group:1"},
	}}
	notifier := &recordingNotifier{err: errors.New("broker down")}

	// 投递失败只记日志，扫描本身不报错。
	newTestEvaluator(lister, notifier, testNow).Sweep(context.Background())

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no successful sends, got %v", notifier.sent)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lister := &fakeLister{schedules: map[string]schedule.UserSchedule{}}
	notifier := &recordingNotifier{}
	e := newTestEvaluator(lister, notifier, testNow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}
