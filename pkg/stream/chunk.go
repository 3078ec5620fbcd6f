package stream

import "time"

// Kind tags a streamed chunk
type Kind string

const (
	KindMessageCreated  Kind = "message.created"
	KindMessageDelta    Kind = "message.delta"
	KindToolCallCreated Kind = "tool_call.created"
	KindToolCallDelta   Kind = "tool_call.delta"
	KindCodeResult      Kind = "code_interpreter.result"
	KindDone            Kind = "done"
	KindError           Kind = "error"
)

// Chunk represents a single record from a streaming response
type Chunk struct {
	Kind      Kind      `json:"kind"`
	RunID     string    `json:"run_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Text      string    `json:"text,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Tool call fields, set for tool_call.* and code_interpreter.result chunks
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`

	// Err is set when a record could not be decoded; never sent by the server
	Err error `json:"-"`
}

// Terminal reports whether the chunk ends the stream
func (c Chunk) Terminal() bool {
	return c.Kind == KindDone || (c.Kind == KindError && c.Err == nil)
}
