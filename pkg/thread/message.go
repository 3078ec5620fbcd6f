package thread

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockKind tags one unit of message content
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockCode       BlockKind = "code"
	BlockCodeOutput BlockKind = "code_output"
	BlockToolCall   BlockKind = "tool_call"
)

// ContentBlock is one unit of message content
type ContentBlock struct {
	Kind       BlockKind
	Text       string
	ImageID    string
	Language   string
	ToolCallID string
	ToolName   string
	ToolArgs   string
	ToolOutput string
}

// Message is one entry in a thread's ordered history. Messages are immutable
// once created, except streaming assistant messages which grow in place until
// their run reaches a terminal status.
type Message struct {
	ID          string
	Role        string
	Blocks      []ContentBlock
	Attachments []Attachment
	CreatedAt   time.Time

	// Local marks an optimistic entry not yet confirmed by the server
	Local bool
}

// NewLocalUserMessage builds the optimistic entry appended before the server
// acknowledges a post
func NewLocalUserMessage(text string) Message {
	return Message{
		ID:        "local-" + uuid.NewString(),
		Role:      RoleUser,
		Blocks:    []ContentBlock{{Kind: BlockText, Text: text}},
		CreatedAt: time.Now(),
		Local:     true,
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Text concatenates the message's text blocks
func (m Message) Text() string {
	var b strings.Builder
	for _, block := range m.Blocks {
		if block.Kind == BlockText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Thread identifies one conversation
type Thread struct {
	ID          string
	ClassID     string
	AssistantID string
	Public      bool
	CreatedAt   time.Time
}

// Participant is a thread member; the map key is the user id or the single
// assistant id
type Participant struct {
	ID        string
	Name      string
	Role      string
	AvatarURL string
}
