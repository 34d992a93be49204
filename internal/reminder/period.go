package reminder

import (
	"strings"
	"time"
)

// periodWindow 把节次描述片段映射到当天的上课时刻。
type periodWindow struct {
	token  string
	hour   int
	minute int
}

// 节次与作息表的对应关系。按序做子串匹配，先命中者生效；
// 未命中表示无法推断上课时间，对应课程不提醒（不是错误）。
var periodWindows = []periodWindow{
	{"第1-2节", 8, 0},
	{"第3-4节", 10, 0},
	{"第5-6节", 14, 0},
	{"第7-8节", 16, 0},
}

// Resolve 从自由格式时间描述中解析上课时刻。
// 返回的 ok 为 false 表示描述中不含任何已知节次。
func Resolve(timeDesc string) (hour, minute int, ok bool) {
	for _, w := range periodWindows {
		if strings.Contains(timeDesc, w.token) {
			return w.hour, w.minute, true
		}
	}
	return 0, 0, false
}

var weekdayTokens = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// Today 返回给定时刻对应的星期标记（周一..周日）。
func Today(t time.Time) string {
	return weekdayTokens[int(t.Weekday())]
}
