package thread

import (
	"context"
	"io"

	"github.com/coursechat/coursechat/pkg/stream"
)

// Service is the backend surface the manager needs for one thread. The API
// client provides the production implementation; tests substitute fakes.
type Service interface {
	// FetchThread returns the thread metadata, its participants, and the
	// current run when one is outstanding
	FetchThread(ctx context.Context) (Thread, []Participant, *Run, error)

	// FetchMessages returns one page in creation-time ascending order.
	// beforeID pages backwards; empty fetches the latest page. The bool
	// reports whether an earlier page exists.
	FetchMessages(ctx context.Context, beforeID string, limit int) ([]Message, bool, error)

	// PostMessage appends a user message and returns the confirmed entry
	// plus the run started for it, if any
	PostMessage(ctx context.Context, userID, text string, attachmentIDs []string) (Message, *Run, error)

	// StreamRun opens the run's chunk stream
	StreamRun(ctx context.Context, runID string) (<-chan stream.Chunk, error)

	// RunStatus polls the run's current state
	RunStatus(ctx context.Context, runID string) (Run, error)

	// UploadAttachment stores a file and returns its confirmed reference
	UploadAttachment(ctx context.Context, name, contentType string, content io.Reader) (Attachment, error)

	// SetPublished toggles the thread's visibility flag
	SetPublished(ctx context.Context, published bool) error

	// DeleteThread soft-deletes the thread
	DeleteThread(ctx context.Context) error
}
