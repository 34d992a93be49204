package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"kcbxt/internal/schedule"
)

// ParseXLSX 从 Excel 工作簿的第一个工作表提取课程表。
// 第 0 行视为表头跳过；后续行取前四个单元格并去除首尾空白，行序保持不变。
// excelize 会把行尾的空单元格整个裁掉，所以不足四列的行先补空串再收录；
// 只有整行全空才跳过。
func ParseXLSX(path string) ([]schedule.CourseEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var out []schedule.CourseEntry
	for i, row := range rows {
		if i == 0 {
			continue // 表头
		}
		for len(row) < 4 {
			row = append(row, "")
		}
		entry := schedule.CourseEntry{
			Course:   strings.TrimSpace(row[0]),
			Time:     strings.TrimSpace(row[1]),
			Location: strings.TrimSpace(row[2]),
			Teacher:  strings.TrimSpace(row[3]),
		}
		if entry.Course == "" && entry.Time == "" && entry.Location == "" && entry.Teacher == "" {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
