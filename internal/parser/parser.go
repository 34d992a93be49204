// Package parser 把四种来源（Word 表格、Excel、OCR 文本、纯文本）的课程表
// 解析为统一的 schedule.CourseEntry 序列。
//
// 所有解析器共享同一条容错原则：坏行/坏单元格只会被跳过，
// 绝不中断对其余合法内容的提取；解析出零条课程也不是错误。
package parser

import (
	"context"
	"regexp"
	"strings"

	"kcbxt/internal/schedule"
)

// courseLine 匹配形如「高等数学 周一第1-2节 教学楼101 张老师」的单行课程描述。
// 第二组必须以星期标记开头并包含「第..节」，否则整行丢弃。
var courseLine = regexp.MustCompile(`^(.+?)\s+(周.第.+?节)\s+(.+?)\s+(.+)$`)

// Recognizer 抽象外部 OCR 服务，由 internal/ocr 提供实现。
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ParseText 对任意消息文本逐行应用课程行模式，返回匹配行的课程记录。
func ParseText(text string) []schedule.CourseEntry {
	var out []schedule.CourseEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := courseLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, schedule.CourseEntry{
			Course:   m[1],
			Time:     m[2],
			Location: m[3],
			Teacher:  m[4],
		})
	}
	return out
}

// ParseImage 把图片字节交给 OCR 服务识别，再按纯文本规则解析识别结果。
// 识别结果为空时返回空序列，不作为错误处理。
func ParseImage(ctx context.Context, rec Recognizer, image []byte) ([]schedule.CourseEntry, error) {
	text, err := rec.Recognize(ctx, image)
	if err != nil {
		return nil, err
	}
	return ParseText(text), nil
}
