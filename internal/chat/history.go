package chat

import "github.com/parley-ai/parley/internal/llm"

// Roles recognised in a conversation history. Messages with any other role
// are ignored when building model input.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry in a conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryMessages converts a conversation history into provider messages,
// dropping turns with unrecognised roles.
func HistoryMessages(history []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, t := range history {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// Messages builds the model input for a new prompt: the converted history
// followed by the prompt as a user message.
func Messages(history []Turn, prompt string) []llm.Message {
	return append(HistoryMessages(history), llm.Message{Role: RoleUser, Content: prompt})
}

// Extend derives a new history from the given one by appending the prompt and
// the assistant response. The input slice is never mutated.
func Extend(history []Turn, prompt, response string) []Turn {
	out := make([]Turn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out, Turn{Role: RoleUser, Content: prompt})
	out = append(out, Turn{Role: RoleAssistant, Content: response})
	return out
}
