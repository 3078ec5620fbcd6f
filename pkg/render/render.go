package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/coursechat/coursechat/pkg/thread"
)

// Renderer turns thread messages into styled terminal output
type Renderer struct {
	styles          Styles
	chromaFormatter chroma.Formatter
	participants    map[string]thread.Participant
}

// NewRenderer creates a renderer with the default styles
func NewRenderer() *Renderer {
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Renderer{
		styles:          DefaultStyles(),
		chromaFormatter: formatter,
		participants:    map[string]thread.Participant{},
	}
}

// SetParticipants supplies display names for message labels
func (r *Renderer) SetParticipants(parts map[string]thread.Participant) {
	r.participants = parts
}

// Message renders one message with its role label and content blocks
func (r *Renderer) Message(msg thread.Message) string {
	var b strings.Builder

	label := msg.Role
	if msg.IsUser() {
		b.WriteString(r.styles.UserLabel.Render(label))
	} else {
		b.WriteString(r.styles.AssistantLabel.Render(label))
	}
	if msg.Local {
		b.WriteString(r.styles.Muted.Render(" (sending...)"))
	}
	b.WriteString("\n")

	for _, block := range msg.Blocks {
		b.WriteString(r.block(block))
	}

	for _, att := range msg.Attachments {
		b.WriteString(r.attachment(att))
	}

	return b.String()
}

func (r *Renderer) block(block thread.ContentBlock) string {
	switch block.Kind {
	case thread.BlockText:
		return r.styles.Body.Render(block.Text) + "\n"
	case thread.BlockImage:
		return r.styles.Muted.Render(fmt.Sprintf("[image %s]", block.ImageID)) + "\n"
	case thread.BlockCode:
		return r.code(block.Text, block.Language)
	case thread.BlockCodeOutput:
		return r.styles.Muted.Render("output:") + "\n" + block.Text + "\n"
	case thread.BlockToolCall:
		return r.styles.Muted.Render(fmt.Sprintf("[tool %s]", block.ToolName)) + "\n"
	}
	return ""
}

func (r *Renderer) attachment(att thread.Attachment) string {
	if att.Deleted() {
		return r.styles.Muted.Render("[deleted attachment]") + "\n"
	}
	name := att.Name
	if name == "" {
		name = att.ID
	}
	return r.styles.Muted.Render(fmt.Sprintf("[attachment %s]", name)) + "\n"
}

// code highlights a code block, falling back to plain text when tokenizing
// fails
func (r *Renderer) code(content, language string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content + "\n"
	}

	var buf strings.Builder
	if err := r.chromaFormatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return content + "\n"
	}

	fence := r.styles.CodeFence.Render("```" + language)
	return fence + "\n" + buf.String() + r.styles.CodeFence.Render("```") + "\n"
}

// Error renders the error overlay
func (r *Renderer) Error(detail string) string {
	return r.styles.Error.Render("error: "+detail) + "\n"
}

// Waiting renders the assistant-thinking indicator
func (r *Renderer) Waiting() string {
	return r.styles.Spinner.Render("assistant is responding...") + "\n"
}
