package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table 简单表格输出，列宽按可见字符计算
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable 创建表格
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow 添加行，多余的列被忽略
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		if w := visibleWidth(row[i]); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Len 数据行数
func (t *Table) Len() int {
	return len(t.rows)
}

// Render 渲染表格
func (t *Table) Render() {
	header := color.New(color.FgCyan, color.Bold)
	for i, h := range t.headers {
		header.Fprint(Writer, pad(h, t.widths[i]))
	}
	fmt.Fprintln(Writer)

	for _, w := range t.widths {
		fmt.Fprint(Writer, strings.Repeat("-", w)+"  ")
	}
	fmt.Fprintln(Writer)

	for _, row := range t.rows {
		for i, cell := range row {
			fmt.Fprint(Writer, pad(cell, t.widths[i]))
		}
		fmt.Fprintln(Writer)
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-visibleWidth(s)+2)
}

// visibleWidth 忽略ANSI颜色码后的字符数
func visibleWidth(s string) int {
	n, inEscape := 0, false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}
