package parser

import (
	"fmt"
	"os"
	"strings"

	docx "github.com/fumiama/go-docx"

	"kcbxt/internal/schedule"
)

// ParseWord 从 Word 文档中提取课程表。
// 遍历文档中的每个表格：首行视为表头跳过，其余行按固定列序
// （课程、时间、地点、老师）取前四个单元格；不足四列的行跳过。
// 文档中没有表格时返回空序列。
func ParseWord(path string) ([]schedule.CourseEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat word file: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse word file: %w", err)
	}

	return coursesFromTables(doc.Document.Body.Items), nil
}

func coursesFromTables(items []interface{}) []schedule.CourseEntry {
	var out []schedule.CourseEntry
	for _, item := range items {
		tbl, ok := item.(*docx.Table)
		if !ok {
			continue
		}
		for i, row := range tbl.TableRows {
			if i == 0 {
				continue // 表头
			}
			cells := make([]string, 0, 4)
			for _, cell := range row.TableCells {
				cells = append(cells, strings.TrimSpace(cellText(cell)))
			}
			if len(cells) < 4 {
				continue
			}
			out = append(out, schedule.CourseEntry{
				Course:   cells[0],
				Time:     cells[1],
				Location: cells[2],
				Teacher:  cells[3],
			})
		}
	}
	return out
}

// cellText 抽取单元格内所有段落的纯文本，段落之间以换行连接。
func cellText(cell *docx.WTableCell) string {
	var parts []string
	for _, para := range cell.Paragraphs {
		var sb strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					sb.WriteString(t.Text)
				}
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n")
}
