package synth

import (
	"fmt"
	"strings"

	"github.com/nvandessel/deskpilot/internal/models"
)

// renderPrompt builds the deterministic synthesis prompt from the event
// window. Only replayable event kinds are rendered; audio commands (the
// trigger itself) are excluded.
func renderPrompt(name string, events []models.Event) string {
	var lines []string
	for _, ev := range events {
		switch ev.Kind {
		case models.EventClick:
			ocr := ""
			if ev.OCRText != nil {
				ocr = cleanText(*ev.OCRText)
			}
			lines = append(lines, fmt.Sprintf("- {ts:%d, event:\"click\", x:%d, y:%d, ocr:%q}",
				ev.Timestamp.Unix(), ev.Payload.X, ev.Payload.Y, ocr))
		case models.EventTextInput:
			lines = append(lines, fmt.Sprintf("- {ts:%d, event:\"type\", text:%q}",
				ev.Timestamp.Unix(), cleanText(ev.Payload.Text)))
		case models.EventKeyPress:
			lines = append(lines, fmt.Sprintf("- {ts:%d, event:\"keypress\", key:%q}",
				ev.Timestamp.Unix(), ev.Payload.Key))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a precise desktop automation assistant. Convert the recorded user actions below into a JSON automation plan named %q.

Recorded actions, oldest first:
%s

Respond with ONLY a JSON array of action objects, no markdown and no other text. Each action object has:
- "type": one of "click", "type", "keypress", "wait"
- "target": for click, {"x": <int>, "y": <int>} using the exact recorded coordinates; for keypress, {"key": "<key code>"}
- "value": for type, {"text": "<text to type>"}; for wait, {"duration_ms": <int>}

Rules:
- Use the exact coordinates from the recorded clicks.
- Combine consecutive type events into one "type" action.
- Only emit "keypress" for intentional keys such as enter, tab, esc, backspace, delete and arrow keys; skip bare modifier keys.
- Skip clearly accidental or redundant actions.
`, name, strings.Join(lines, "\n"))
	return b.String()
}

// renderRepairPrompt embeds the validation failure in a corrective
// follow-up. The instructions are restated in full so the call stays
// stateless.
func renderRepairPrompt(base, rejected string, cause error) string {
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, `
Your previous response was rejected: %s

Previous response:
%s

Respond again with ONLY the corrected JSON array.
`, cause, cleanText(truncate(rejected, 2000)))
	return b.String()
}

// cleanText strips control characters so recorded text cannot corrupt the
// prompt structure.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
