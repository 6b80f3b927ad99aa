package chat

// Author identifies who produced a transcript entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message is one transcript entry. Entries are never edited after append.
type Message struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// UserMessage builds a transcript entry typed by the visitor.
func UserMessage(text string) Message {
	return Message{Author: AuthorUser, Text: text}
}

// AssistantMessage builds a transcript entry produced by the provider.
func AssistantMessage(text string) Message {
	return Message{Author: AuthorAssistant, Text: text}
}
