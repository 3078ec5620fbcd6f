package api

import (
	"context"
	"io"

	"github.com/coursechat/coursechat/pkg/stream"
	"github.com/coursechat/coursechat/pkg/thread"
)

// ThreadService adapts the API client to the thread manager's Service
// interface for one thread
type ThreadService struct {
	client   *Client
	threadID string
}

// NewThreadService binds a client to a thread id
func NewThreadService(client *Client, threadID string) *ThreadService {
	return &ThreadService{client: client, threadID: threadID}
}

func (s *ThreadService) FetchThread(ctx context.Context) (thread.Thread, []thread.Participant, *thread.Run, error) {
	resp, err := Explode(s.client.GetThread(ctx, s.threadID))
	if err != nil {
		return thread.Thread{}, nil, nil, err
	}

	parts := make([]thread.Participant, 0, len(resp.Participants))
	for _, p := range resp.Participants {
		parts = append(parts, thread.Participant{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			AvatarURL: p.AvatarURL,
		})
	}

	var run *thread.Run
	if resp.Run != nil {
		run = &thread.Run{ID: resp.Run.ID, Status: thread.RunStatus(resp.Run.Status)}
	}

	return toThread(resp.Thread), parts, run, nil
}

func (s *ThreadService) FetchMessages(ctx context.Context, beforeID string, limit int) ([]thread.Message, bool, error) {
	resp, err := Explode(s.client.ListMessages(ctx, s.threadID, beforeID, limit))
	if err != nil {
		return nil, false, err
	}

	msgs := make([]thread.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, toMessage(m))
	}
	return msgs, resp.HasMore, nil
}

func (s *ThreadService) PostMessage(ctx context.Context, userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
	resp, err := Explode(s.client.PostMessage(ctx, s.threadID, PostMessageRequest{
		UserID:        userID,
		Text:          text,
		AttachmentIDs: attachmentIDs,
	}))
	if err != nil {
		return thread.Message{}, nil, err
	}

	var run *thread.Run
	if resp.Run != nil {
		run = &thread.Run{ID: resp.Run.ID, Status: thread.RunStatus(resp.Run.Status)}
	}
	return toMessage(resp.Message), run, nil
}

func (s *ThreadService) StreamRun(ctx context.Context, runID string) (<-chan stream.Chunk, error) {
	body, err := s.client.StreamRunEvents(ctx, s.threadID, runID)
	if err != nil {
		return nil, err
	}
	return stream.Decode(ctx, body), nil
}

func (s *ThreadService) RunStatus(ctx context.Context, runID string) (thread.Run, error) {
	resp, err := Explode(s.client.GetRun(ctx, s.threadID, runID))
	if err != nil {
		return thread.Run{}, err
	}
	return thread.Run{ID: resp.Run.ID, Status: thread.RunStatus(resp.Run.Status)}, nil
}

func (s *ThreadService) UploadAttachment(ctx context.Context, name, contentType string, content io.Reader) (thread.Attachment, error) {
	resp, err := Explode(s.client.UploadFile(ctx, name, contentType, content))
	if err != nil {
		return thread.Attachment{}, err
	}
	return thread.Attachment{
		ID:          resp.File.ID,
		Name:        resp.File.Name,
		ContentType: resp.File.ContentType,
		State:       thread.AttachmentSuccess,
	}, nil
}

func (s *ThreadService) SetPublished(ctx context.Context, published bool) error {
	_, err := Explode(s.client.SetThreadPublic(ctx, s.threadID, published))
	return err
}

func (s *ThreadService) DeleteThread(ctx context.Context) error {
	_, err := Explode(s.client.DeleteThread(ctx, s.threadID))
	return err
}

func toThread(t Thread) thread.Thread {
	return thread.Thread{
		ID:          t.ID,
		ClassID:     t.ClassID,
		AssistantID: t.AssistantID,
		Public:      t.Public,
		CreatedAt:   t.CreatedAt,
	}
}

func toMessage(m Message) thread.Message {
	blocks := make([]thread.ContentBlock, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		blocks = append(blocks, thread.ContentBlock{
			Kind:       thread.BlockKind(b.Kind),
			Text:       b.Text,
			ImageID:    b.ImageID,
			Language:   b.Language,
			ToolCallID: b.ToolCallID,
			ToolName:   b.ToolName,
			ToolArgs:   b.ToolArgs,
			ToolOutput: b.ToolOutput,
		})
	}

	atts := make([]thread.Attachment, 0, len(m.AttachmentIDs))
	for _, id := range m.AttachmentIDs {
		atts = append(atts, thread.Attachment{ID: id, State: thread.AttachmentSuccess})
	}

	return thread.Message{
		ID:          m.ID,
		Role:        m.Role,
		Blocks:      blocks,
		Attachments: atts,
		CreatedAt:   m.CreatedAt,
	}
}
