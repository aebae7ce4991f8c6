// Package output CLI输出：彩色消息、表格与JSON
package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/fatih/color"
)

// Writer 输出目标，测试时可替换
var Writer io.Writer = os.Stdout

// PrintJSON 输出JSON格式
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Success 输出成功消息
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Fprintf(Writer, "✅ "+format+"\n", args...)
}

// Error 输出错误消息
func Error(format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprintf(Writer, "❌ "+format+"\n", args...)
}

// Info 输出信息
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Writer, "ℹ️  "+format+"\n", args...)
}

// Warning 输出警告
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Writer, "⚠️  "+format+"\n", args...)
}

// Category 按告警类别着色
func Category(category string) string {
	switch category {
	case "overdue":
		return color.New(color.FgRed, color.Bold).Sprint(category)
	case "urgent":
		return color.New(color.FgRed).Sprint(category)
	case "warning":
		return color.New(color.FgYellow).Sprint(category)
	case "section_start":
		return color.New(color.FgCyan).Sprint(category)
	default:
		return category
	}
}
