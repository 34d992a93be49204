// Package metrics 汇集 HTTP、队列与提醒投递三侧的 Prometheus 指标，
// 统一挂在 kcbxt 命名空间下，由 api 服务的 /metrics 端点暴露。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kcbxt",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "宿主指令请求耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kcbxt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "宿主指令请求总数。",
		},
		[]string{"method", "path", "status"},
	)

	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kcbxt",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的宿主指令请求数量。",
		},
	)
)

// GinMiddleware 按「方法 + 路由模板 + 状态码」维度采集请求指标。
// path 标签优先用路由模板（/v1/schedule/:userID）而不是实际路径，
// 避免每个用户 ID 产生一条新时间序列。
func GinMiddleware() gin.HandlerFunc {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestDuration, requestTotal, requestsInFlight)
	})

	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(c.Writer.Status()),
		}

		requestDuration.With(labels).Observe(time.Since(start).Seconds())
		requestTotal.With(labels).Inc()
	}
}
