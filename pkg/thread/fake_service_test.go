package thread_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/coursechat/coursechat/pkg/stream"
	"github.com/coursechat/coursechat/pkg/thread"
)

// fakeService is a controllable in-memory Service implementation
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int

	fetchThreadFn   func() (thread.Thread, []thread.Participant, *thread.Run, error)
	fetchMessagesFn func(beforeID string, limit int) ([]thread.Message, bool, error)
	postMessageFn   func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error)
	streamRunFn     func(ctx context.Context, runID string) (<-chan stream.Chunk, error)
	runStatusFn     func(runID string) (thread.Run, error)
	uploadFn        func(name, contentType string) (thread.Attachment, error)
	setPublishedFn  func(published bool) error
	deleteFn        func() error
}

func newFakeService() *fakeService {
	f := &fakeService{calls: map[string]int{}}

	f.fetchThreadFn = func() (thread.Thread, []thread.Participant, *thread.Run, error) {
		return thread.Thread{ID: "t-42", ClassID: "c-7", AssistantID: "a-1"},
			[]thread.Participant{
				{ID: "u-3", Name: "Ada", Role: "student"},
				{ID: "a-1", Name: "Tutor", Role: "assistant"},
			}, nil, nil
	}
	f.fetchMessagesFn = func(beforeID string, limit int) ([]thread.Message, bool, error) {
		return []thread.Message{
			{ID: "m-1", Role: thread.RoleUser, CreatedAt: time.Unix(100, 0)},
			{ID: "m-2", Role: thread.RoleAssistant, CreatedAt: time.Unix(101, 0)},
		}, false, nil
	}
	f.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
		return thread.Message{
			ID:        "m-confirmed",
			Role:      thread.RoleUser,
			Blocks:    []thread.ContentBlock{{Kind: thread.BlockText, Text: text}},
			CreatedAt: time.Unix(102, 0),
		}, nil, nil
	}
	f.streamRunFn = func(ctx context.Context, runID string) (<-chan stream.Chunk, error) {
		ch := make(chan stream.Chunk)
		close(ch)
		return ch, nil
	}
	f.runStatusFn = func(runID string) (thread.Run, error) {
		return thread.Run{ID: runID, Status: thread.RunCompleted}, nil
	}
	f.uploadFn = func(name, contentType string) (thread.Attachment, error) {
		return thread.Attachment{ID: "f-1", Name: name, ContentType: contentType, State: thread.AttachmentSuccess}, nil
	}
	f.setPublishedFn = func(published bool) error { return nil }
	f.deleteFn = func() error { return nil }

	return f
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) FetchThread(ctx context.Context) (thread.Thread, []thread.Participant, *thread.Run, error) {
	f.record("FetchThread")
	return f.fetchThreadFn()
}

func (f *fakeService) FetchMessages(ctx context.Context, beforeID string, limit int) ([]thread.Message, bool, error) {
	f.record("FetchMessages")
	return f.fetchMessagesFn(beforeID, limit)
}

func (f *fakeService) PostMessage(ctx context.Context, userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
	f.record("PostMessage")
	return f.postMessageFn(userID, text, attachmentIDs)
}

func (f *fakeService) StreamRun(ctx context.Context, runID string) (<-chan stream.Chunk, error) {
	f.record("StreamRun")
	return f.streamRunFn(ctx, runID)
}

func (f *fakeService) RunStatus(ctx context.Context, runID string) (thread.Run, error) {
	f.record("RunStatus")
	return f.runStatusFn(runID)
}

func (f *fakeService) UploadAttachment(ctx context.Context, name, contentType string, content io.Reader) (thread.Attachment, error) {
	f.record("UploadAttachment")
	return f.uploadFn(name, contentType)
}

func (f *fakeService) SetPublished(ctx context.Context, published bool) error {
	f.record("SetPublished")
	return f.setPublishedFn(published)
}

func (f *fakeService) DeleteThread(ctx context.Context) error {
	f.record("DeleteThread")
	return f.deleteFn()
}

var errBackend = errors.New("api error: status 500: backend unavailable")
