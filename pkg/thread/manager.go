package thread

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/coursechat/coursechat/pkg/logger"
	"github.com/coursechat/coursechat/pkg/stream"
)

var (
	// ErrEmptyMessage is returned by PostMessage for blank text; no network
	// request is issued
	ErrEmptyMessage = errors.New("message text must not be empty")

	// ErrClosed is returned by operations on a torn-down manager
	ErrClosed = errors.New("thread manager is closed")
)

// Snapshot is an immutable view of the manager's state handed to subscribers
type Snapshot struct {
	Thread       Thread
	Messages     []Message
	Participants map[string]Participant
	Loading      bool
	Submitting   bool
	Waiting      bool
	Err          string
}

// Subscriber receives a snapshot after every state change
type Subscriber func(Snapshot)

// Manager owns the message list, participant map, run status, and attachment
// set for one conversation thread. It is the only stateful component between
// the API client and the view layer: it folds stream chunks into messages,
// applies optimistic sends with rollback, and tracks run completion.
//
// Exactly one non-terminal run is tracked at a time. If the server reports a
// new run while one is being waited on, the newest run wins and events for
// the stale one are discarded (compared by run id and an adoption counter).
type Manager struct {
	svc          Service
	pageSize     int
	pollInterval time.Duration
	log          *logger.ComponentLogger

	mu           sync.Mutex
	thread       Thread
	participants map[string]Participant
	messages     []Message
	attachments  map[string]Attachment
	loading      bool
	submitting   bool
	waiting      bool
	errMsg       string
	hasMore      bool
	runID        string
	runGen       int
	runCancel    context.CancelFunc
	closed       bool
	ctx          context.Context
	cancel       context.CancelFunc
	subs         map[int]Subscriber
	nextSub      int
}

// NewManager creates a manager for one thread. Call Load before anything
// else.
func NewManager(svc Service) *Manager {
	return &Manager{
		svc:          svc,
		pageSize:     25,
		pollInterval: time.Second,
		log:          logger.WithComponent("thread_manager"),
		participants: map[string]Participant{},
		attachments:  map[string]Attachment{},
		subs:         map[int]Subscriber{},
	}
}

// WithPageSize sets the message page size for the initial fetch and FetchMore
func (m *Manager) WithPageSize(n int) *Manager {
	if n > 0 {
		m.pageSize = n
	}
	return m
}

// WithPollInterval sets the run polling interval used when streaming is
// unavailable
func (m *Manager) WithPollInterval(d time.Duration) *Manager {
	if d > 0 {
		m.pollInterval = d
	}
	return m
}

// Subscribe registers a callback invoked after every state change. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Load performs the initial fetch of thread metadata plus the latest message
// page. A failed fetch keeps whatever partial state arrived so the view can
// show the error without discarding data.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	cctx, cancel := context.WithCancel(ctx)
	m.ctx = cctx
	m.cancel = cancel
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()
	m.notify()

	thr, parts, run, err := m.svc.FetchThread(cctx)
	if err != nil {
		m.failLoad(err)
		return err
	}

	msgs, hasMore, err := m.svc.FetchMessages(cctx, "", m.pageSize)
	if err != nil {
		m.mu.Lock()
		if !m.closed {
			m.thread = thr
			m.setParticipantsLocked(parts)
		}
		m.mu.Unlock()
		m.failLoad(err)
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.thread = thr
	m.setParticipantsLocked(parts)
	m.messages = msgs
	m.indexAttachmentsLocked(msgs)
	m.hasMore = hasMore
	m.loading = false

	var wctx context.Context
	if run != nil && !run.Finished() {
		wctx = m.adoptRunLocked(*run)
	}
	runID, gen := m.runID, m.runGen
	m.mu.Unlock()
	m.notify()

	if wctx != nil {
		go m.watchRun(wctx, runID, gen)
	}
	return nil
}

func (m *Manager) failLoad(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.loading = false
	m.errMsg = err.Error()
	m.mu.Unlock()
	m.notify()
}

// PostMessage appends the user's message optimistically, sends it, and on
// acceptance begins waiting on the run the server started for it. A failed
// send rolls the optimistic entry back.
func (m *Manager) PostMessage(ctx context.Context, userID, text string, attachmentIDs ...string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		m.errMsg = ErrEmptyMessage.Error()
		m.mu.Unlock()
		m.notify()
		return ErrEmptyMessage
	}

	local := NewLocalUserMessage(text)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.messages = append(m.messages, local)
	m.submitting = true
	m.mu.Unlock()
	m.notify()

	msg, run, err := m.svc.PostMessage(ctx, userID, text, attachmentIDs)
	if err != nil {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return err
		}
		m.removeMessageLocked(local.ID)
		m.submitting = false
		m.errMsg = err.Error()
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.replaceMessageLocked(local.ID, msg)
	m.indexAttachmentsLocked([]Message{msg})
	m.submitting = false

	var wctx context.Context
	if run != nil && !run.Finished() {
		wctx = m.adoptRunLocked(*run)
	}
	runID, gen := m.runID, m.runGen
	m.mu.Unlock()
	m.notify()

	if wctx != nil {
		go m.watchRun(wctx, runID, gen)
	}
	return nil
}

// FetchMore prepends the next older page. A silent no-op when no earlier page
// exists. Messages already present are deduplicated by id so repeated calls
// never duplicate the page boundary.
func (m *Manager) FetchMore(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.loading || !m.hasMore {
		m.mu.Unlock()
		return nil
	}

	beforeID := ""
	for _, msg := range m.messages {
		if !msg.Local {
			beforeID = msg.ID
			break
		}
	}
	m.mu.Unlock()

	msgs, hasMore, err := m.svc.FetchMessages(ctx, beforeID, m.pageSize)
	if err != nil {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return err
		}
		m.errMsg = err.Error()
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	existing := m.idSetLocked()
	older := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if !existing[msg.ID] {
			older = append(older, msg)
		}
	}
	m.messages = append(older, m.messages...)
	m.indexAttachmentsLocked(older)
	m.hasMore = hasMore
	m.mu.Unlock()
	m.notify()
	return nil
}

// UploadAttachment uploads a file and tracks its lifecycle in the attachment
// set. The returned attachment is in the success state; on failure the
// pending entry flips to error and the error is returned.
func (m *Manager) UploadAttachment(ctx context.Context, name, contentType string, content io.Reader) (Attachment, error) {
	pending := Attachment{ID: "pending-" + name, Name: name, ContentType: contentType, State: AttachmentPending}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Attachment{}, ErrClosed
	}
	m.attachments[pending.ID] = pending
	m.mu.Unlock()
	m.notify()

	att, err := m.svc.UploadAttachment(ctx, name, contentType, content)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Attachment{}, ErrClosed
	}
	delete(m.attachments, pending.ID)
	if err != nil {
		pending.State = AttachmentError
		m.attachments[pending.ID] = pending
		m.errMsg = err.Error()
		m.mu.Unlock()
		m.notify()
		return Attachment{}, err
	}
	att.State = AttachmentSuccess
	m.attachments[att.ID] = att
	m.mu.Unlock()
	m.notify()
	return att, nil
}

// Attachment resolves a file reference from the attachment set. A miss means
// the file was deleted and should render as a placeholder.
func (m *Manager) Attachment(id string) (Attachment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attachments[id]
	return att, ok
}

// Publish makes the thread visible via its share link
func (m *Manager) Publish(ctx context.Context) error {
	return m.setPublished(ctx, true)
}

// Unpublish hides the thread again
func (m *Manager) Unpublish(ctx context.Context) error {
	return m.setPublished(ctx, false)
}

func (m *Manager) setPublished(ctx context.Context, published bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	if err := m.svc.SetPublished(ctx, published); err != nil {
		// A 403 is an ordinary error to surface, not fatal
		m.mu.Lock()
		if !m.closed {
			m.errMsg = err.Error()
		}
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.thread.Public = published
	m.mu.Unlock()
	m.notify()
	return nil
}

// Delete removes the thread. On success the manager is closed and must not
// be used further.
func (m *Manager) Delete(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	if err := m.svc.DeleteThread(ctx); err != nil {
		m.mu.Lock()
		if !m.closed {
			m.errMsg = err.Error()
		}
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.Close()
	return nil
}

// DismissError clears the error overlay without touching message state
func (m *Manager) DismissError() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.errMsg = ""
	m.mu.Unlock()
	m.notify()
}

// Close tears the manager down: in-flight polling and streaming stop and no
// further state mutation or notification occurs
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.runGen++
	cancel := m.cancel
	runCancel := m.runCancel
	m.runCancel = nil
	m.mu.Unlock()

	if runCancel != nil {
		runCancel()
	}
	if cancel != nil {
		cancel()
	}
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Messages returns the current message list in creation order
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cloneMessagesLocked()
}

// Loading reports whether the initial fetch is outstanding
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Submitting reports whether a local message send is outstanding
func (m *Manager) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// Waiting reports whether the tracked run exists and is not finished
func (m *Manager) Waiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// Err returns the current error overlay, empty when none
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Thread returns the thread metadata
func (m *Manager) Thread() Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thread
}

// Participants returns the participant map keyed by id
func (m *Manager) Participants() map[string]Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Participant, len(m.participants))
	for k, v := range m.participants {
		out[k] = v
	}
	return out
}

// Closed reports whether the manager has been torn down
func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// run tracking

// adoptRunLocked makes runID the tracked run, last write wins. Bumping the
// generation invalidates continuations watching the previous run, and
// cancelling the previous run's context unblocks its stream producer so the
// abandoned watch releases its connection. Returns the context the new run's
// watcher must use.
func (m *Manager) adoptRunLocked(run Run) context.Context {
	if m.runCancel != nil {
		m.runCancel()
	}
	rctx, cancel := context.WithCancel(m.runCtxLocked())
	m.runID = run.ID
	m.runGen++
	m.runCancel = cancel
	m.waiting = !run.Finished()
	return rctx
}

func (m *Manager) runCtxLocked() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

// watchRun consumes the run's chunk stream, falling back to status polling
// when the stream cannot be opened
func (m *Manager) watchRun(ctx context.Context, runID string, gen int) {
	chunks, err := m.svc.StreamRun(ctx, runID)
	if err != nil {
		m.log.Warn("run stream unavailable, polling instead", "run_id", runID, "error", err)
		m.pollRun(ctx, runID, gen)
		return
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			// Malformed record: log and keep consuming
			m.log.Error("malformed stream record", "run_id", runID, "error", chunk.Err)
			continue
		}
		if !m.applyChunk(runID, gen, chunk) {
			return
		}
		if chunk.Kind == stream.KindDone {
			m.finishRun(ctx, runID, gen, "")
			return
		}
		if chunk.Kind == stream.KindError {
			m.finishRun(ctx, runID, gen, chunk.Detail)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	// Transport-level stream failure: terminal for this run
	m.finishRun(ctx, runID, gen, "assistant stream ended unexpectedly")
}

// pollRun watches run status until it reaches a terminal state
func (m *Manager) pollRun(ctx context.Context, runID string, gen int) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if m.stale(runID, gen) {
			return
		}

		run, err := m.svc.RunStatus(ctx, runID)
		if err != nil {
			m.finishRun(ctx, runID, gen, err.Error())
			return
		}
		if run.Finished() {
			detail := ""
			if run.Status != RunCompleted {
				detail = "assistant run " + string(run.Status)
			}
			m.finishRun(ctx, runID, gen, detail)
			return
		}
	}
}

func (m *Manager) stale(runID string, gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || gen != m.runGen || runID != m.runID
}

// applyChunk folds one stream chunk into the message list. Returns false when
// the chunk belongs to a stale run or the manager is closed, which stops the
// watcher.
func (m *Manager) applyChunk(runID string, gen int, chunk stream.Chunk) bool {
	m.mu.Lock()
	if m.closed || gen != m.runGen || runID != m.runID {
		m.mu.Unlock()
		return false
	}

	switch chunk.Kind {
	case stream.KindMessageCreated:
		if !m.hasMessageLocked(chunk.MessageID) {
			role := chunk.Role
			if role == "" {
				role = RoleAssistant
			}
			m.messages = append(m.messages, Message{
				ID:        chunk.MessageID,
				Role:      role,
				CreatedAt: chunk.CreatedAt,
			})
		}
	case stream.KindMessageDelta:
		m.appendDeltaLocked(chunk.MessageID, chunk.Text)
	case stream.KindToolCallCreated:
		m.upsertToolCallLocked(chunk.MessageID, ContentBlock{
			Kind:       BlockToolCall,
			ToolCallID: chunk.ToolCallID,
			ToolName:   chunk.ToolName,
			ToolArgs:   chunk.ToolArgs,
		})
	case stream.KindToolCallDelta:
		m.appendToolArgsLocked(chunk.MessageID, chunk.ToolCallID, chunk.ToolArgs)
	case stream.KindCodeResult:
		m.appendBlockLocked(chunk.MessageID, ContentBlock{
			Kind:       BlockCodeOutput,
			Text:       chunk.Text,
			ToolCallID: chunk.ToolCallID,
			ToolOutput: chunk.ToolOutput,
		})
	}
	m.mu.Unlock()
	m.notify()
	return true
}

// finishRun clears the waiting flag and refreshes the message tail so any
// messages generated by the run are picked up
func (m *Manager) finishRun(ctx context.Context, runID string, gen int, errDetail string) {
	if m.stale(runID, gen) {
		return
	}

	msgs, _, err := m.svc.FetchMessages(ctx, "", m.pageSize)

	m.mu.Lock()
	if m.closed || gen != m.runGen || runID != m.runID {
		m.mu.Unlock()
		return
	}
	if err == nil {
		m.mergeTailLocked(msgs)
	} else if errDetail == "" {
		errDetail = err.Error()
	}
	if errDetail != "" {
		m.errMsg = errDetail
	}
	m.waiting = false
	m.runID = ""
	cancel := m.runCancel
	m.runCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.notify()
}

// message list helpers, all called with mu held

func (m *Manager) idSetLocked() map[string]bool {
	ids := make(map[string]bool, len(m.messages))
	for _, msg := range m.messages {
		ids[msg.ID] = true
	}
	return ids
}

func (m *Manager) hasMessageLocked(id string) bool {
	for _, msg := range m.messages {
		if msg.ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) removeMessageLocked(id string) {
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

// replaceMessageLocked swaps the optimistic entry for the server-confirmed
// one in place, so the rendered position never jumps
func (m *Manager) replaceMessageLocked(localID string, confirmed Message) {
	for i, msg := range m.messages {
		if msg.ID == localID {
			m.messages[i] = confirmed
			return
		}
	}
	m.messages = append(m.messages, confirmed)
}

func (m *Manager) appendDeltaLocked(messageID, text string) {
	for i := range m.messages {
		if m.messages[i].ID != messageID {
			continue
		}
		blocks := m.messages[i].Blocks
		if n := len(blocks); n > 0 && blocks[n-1].Kind == BlockText {
			blocks[n-1].Text += text
		} else {
			m.messages[i].Blocks = append(blocks, ContentBlock{Kind: BlockText, Text: text})
		}
		return
	}
	// Delta for an unseen message id: create it rather than drop the text
	m.messages = append(m.messages, Message{
		ID:     messageID,
		Role:   RoleAssistant,
		Blocks: []ContentBlock{{Kind: BlockText, Text: text}},
	})
}

func (m *Manager) appendBlockLocked(messageID string, block ContentBlock) {
	for i := range m.messages {
		if m.messages[i].ID == messageID {
			m.messages[i].Blocks = append(m.messages[i].Blocks, block)
			return
		}
	}
}

func (m *Manager) upsertToolCallLocked(messageID string, block ContentBlock) {
	for i := range m.messages {
		if m.messages[i].ID != messageID {
			continue
		}
		for j := range m.messages[i].Blocks {
			existing := &m.messages[i].Blocks[j]
			if existing.Kind == BlockToolCall && existing.ToolCallID == block.ToolCallID {
				return
			}
		}
		m.messages[i].Blocks = append(m.messages[i].Blocks, block)
		return
	}
}

func (m *Manager) appendToolArgsLocked(messageID, toolCallID, args string) {
	for i := range m.messages {
		if m.messages[i].ID != messageID {
			continue
		}
		for j := range m.messages[i].Blocks {
			block := &m.messages[i].Blocks[j]
			if block.Kind == BlockToolCall && block.ToolCallID == toolCallID {
				block.ToolArgs += args
				return
			}
		}
		return
	}
}

// mergeTailLocked appends messages not yet present, preserving the order of
// already-rendered entries
func (m *Manager) mergeTailLocked(msgs []Message) {
	existing := m.idSetLocked()
	for _, msg := range msgs {
		if !existing[msg.ID] {
			m.messages = append(m.messages, msg)
		}
	}
	m.indexAttachmentsLocked(msgs)
}

func (m *Manager) setParticipantsLocked(parts []Participant) {
	m.participants = make(map[string]Participant, len(parts))
	for _, p := range parts {
		m.participants[p.ID] = p
	}
}

func (m *Manager) indexAttachmentsLocked(msgs []Message) {
	for _, msg := range msgs {
		for _, att := range msg.Attachments {
			if att.ID == "" {
				continue
			}
			if att.State == "" {
				att.State = AttachmentSuccess
			}
			m.attachments[att.ID] = att
		}
	}
}

// cloneMessagesLocked deep-copies the message list. Streaming mutates block
// slices in place, so handed-out views must not share block storage with the
// live list.
func (m *Manager) cloneMessagesLocked() []Message {
	out := make([]Message, len(m.messages))
	for i, msg := range m.messages {
		if len(msg.Blocks) > 0 {
			blocks := make([]ContentBlock, len(msg.Blocks))
			copy(blocks, msg.Blocks)
			msg.Blocks = blocks
		}
		out[i] = msg
	}
	return out
}

func (m *Manager) snapshotLocked() Snapshot {
	msgs := m.cloneMessagesLocked()
	parts := make(map[string]Participant, len(m.participants))
	for k, v := range m.participants {
		parts[k] = v
	}
	return Snapshot{
		Thread:       m.thread,
		Messages:     msgs,
		Participants: parts,
		Loading:      m.loading,
		Submitting:   m.submitting,
		Waiting:      m.waiting,
		Err:          m.errMsg,
	}
}

// notify delivers a snapshot to every subscriber outside the lock. Nothing is
// delivered once the manager is closed.
func (m *Manager) notify() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	subs := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
