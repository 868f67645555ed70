// Package prompt turns a conversation into a single completion prompt and
// cleans stop markers out of generated text. Both functions are pure.
package prompt

import (
	"strings"
	"unicode"

	"llamachat/pkg/types"
)

// LineSeparator joins the instruction and every rendered turn.
const LineSeparator = "\n"

// AssistantCue is the last line of every prompt; the engine continues from it.
var AssistantCue = string(types.RoleAssistant) + ": "

// Build renders history as "<Role>: <content>" lines below the instruction
// and ends with the assistant cue. An empty history yields
// instruction + "\n" + "Assistant: ".
func Build(history []types.ConversationTurn, instruction string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString(LineSeparator)

	var turns strings.Builder
	for i, t := range history {
		if i > 0 {
			turns.WriteString(LineSeparator)
		}
		turns.WriteString(string(t.Role))
		turns.WriteString(": ")
		turns.WriteString(t.Content)
	}
	if body := strings.TrimRightFunc(turns.String(), unicode.IsSpace); body != "" {
		b.WriteString(body)
		b.WriteString(LineSeparator)
	}
	b.WriteString(AssistantCue)
	return b.String()
}
