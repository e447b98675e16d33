package telegram

import "strings"

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown 转义 Markdown（legacy）模式下的特殊字符，交易对名称中的下划线会被解析为斜体
func EscapeMarkdown(input string) string {
	return markdownEscaper.Replace(input)
}
