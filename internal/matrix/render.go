// ABOUTME: Renders outgoing text for Matrix: Markdown to HTML and buttons as command hints
// ABOUTME: Matrix has no inline keyboards, so a button becomes a "!payload" line

package matrix

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/2389/raketa/internal/notify"
)

// ButtonPrefix marks a message as a button press.
const ButtonPrefix = "!"

var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

// withButtons appends one hint line per button to text.
func withButtons(text string, buttons ...notify.Button) string {
	if len(buttons) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	if text != "" {
		b.WriteString("\n")
	}
	for _, btn := range buttons {
		b.WriteString("\n")
		b.WriteString(btn.Label)
		b.WriteString(": `")
		b.WriteString(ButtonPrefix)
		b.WriteString(btn.Payload)
		b.WriteString("`")
	}
	return b.String()
}

// toHTML renders Markdown for formatted_body. On failure the caller sends
// the plain body only.
func toHTML(md string) (string, bool) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}
