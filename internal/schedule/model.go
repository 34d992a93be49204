package schedule

import "strings"

// CourseEntry 表示一条归一化后的课程记录。
// 四种解析来源（Word 表格、Excel、OCR 文本、纯文本）都收敛到这个形状，
// 提醒与展示逻辑因此无需关心课程表的上传方式。
type CourseEntry struct {
	Course   string `json:"course"`
	Time     string `json:"time"` // 自由格式节次描述，如 "周一第1-2节"
	Location string `json:"location"`
	Teacher  string `json:"teacher"`
}

// UserSchedule 表示单个用户的完整课程表。
// 每次上传成功后整体覆盖，不做增量更新。
type UserSchedule struct {
	Courses []CourseEntry `json:"courses"`
	// NotifyTarget 是宿主机器人侧的会话定位符，提醒消息发往该目标。
	NotifyTarget string `json:"unified_msg_origin"`
}

// TodayCourses 返回时间描述中包含今天星期标记的课程，保持原顺序。
func (s UserSchedule) TodayCourses(today string) []CourseEntry {
	var out []CourseEntry
	for _, c := range s.Courses {
		if today != "" && strings.Contains(c.Time, today) {
			out = append(out, c)
		}
	}
	return out
}
