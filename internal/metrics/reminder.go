package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var remindersEnqueuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "kcbxt",
		Subsystem: "reminder",
		Name:      "enqueued_total",
		Help:      "提醒扫描产生并成功入队的提醒条数。",
	},
	[]string{"result"},
)

// ReminderEnqueued 记录一次提醒入队结果，result 取 ok 或 error。
func ReminderEnqueued(result string) {
	remindersEnqueuedTotal.WithLabelValues(result).Inc()
}
