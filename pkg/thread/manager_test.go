package thread_test

import (
	"context"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coursechat/coursechat/pkg/stream"
	"github.com/coursechat/coursechat/pkg/thread"
)

var _ = Describe("Manager", func() {
	var (
		svc *fakeService
		mgr *thread.Manager
		ctx context.Context
	)

	BeforeEach(func() {
		svc = newFakeService()
		mgr = thread.NewManager(svc).WithPageSize(25).WithPollInterval(10 * time.Millisecond)
		ctx = context.Background()
	})

	AfterEach(func() {
		mgr.Close()
	})

	Describe("Load", func() {
		It("fetches the thread, participants, and latest message page", func() {
			Expect(mgr.Load(ctx)).To(Succeed())

			Expect(mgr.Loading()).To(BeFalse())
			Expect(mgr.Thread().ID).To(Equal("t-42"))
			Expect(mgr.Messages()).To(HaveLen(2))
			Expect(mgr.Participants()).To(HaveKey("u-3"))
			Expect(mgr.Participants()).To(HaveKey("a-1"))
			Expect(mgr.Err()).To(BeEmpty())
		})

		It("surfaces a fetch failure as the error overlay", func() {
			svc.fetchThreadFn = func() (thread.Thread, []thread.Participant, *thread.Run, error) {
				return thread.Thread{}, nil, nil, errBackend
			}

			Expect(mgr.Load(ctx)).To(MatchError(errBackend))
			Expect(mgr.Loading()).To(BeFalse())
			Expect(mgr.Err()).To(ContainSubstring("backend unavailable"))
			Expect(mgr.Messages()).To(BeEmpty())
		})

		It("keeps thread metadata when only the message page fails", func() {
			svc.fetchMessagesFn = func(beforeID string, limit int) ([]thread.Message, bool, error) {
				return nil, false, errBackend
			}

			Expect(mgr.Load(ctx)).To(MatchError(errBackend))
			Expect(mgr.Thread().ID).To(Equal("t-42"))
			Expect(mgr.Err()).NotTo(BeEmpty())
		})

		It("adopts a run the server reports as still in progress", func() {
			svc.fetchThreadFn = func() (thread.Thread, []thread.Participant, *thread.Run, error) {
				run := thread.Run{ID: "run-0", Status: thread.RunInProgress}
				return thread.Thread{ID: "t-42"}, nil, &run, nil
			}
			chunks := make(chan stream.Chunk, 1)
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.Waiting()).To(BeTrue())

			chunks <- stream.Chunk{Kind: stream.KindDone, RunID: "run-0"}
			close(chunks)

			Eventually(mgr.Waiting).Should(BeFalse())
		})
	})

	Describe("PostMessage", func() {
		BeforeEach(func() {
			Expect(mgr.Load(ctx)).To(Succeed())
		})

		It("rejects blank text without touching the network", func() {
			err := mgr.PostMessage(ctx, "u-3", "   \n\t ")

			Expect(err).To(MatchError(thread.ErrEmptyMessage))
			Expect(svc.count("PostMessage")).To(BeZero())
			Expect(mgr.Err()).To(Equal(thread.ErrEmptyMessage.Error()))
			Expect(mgr.Messages()).To(HaveLen(2))
		})

		It("replaces the optimistic entry with the confirmed message in place", func() {
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			msgs := mgr.Messages()
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[2].ID).To(Equal("m-confirmed"))
			Expect(msgs[2].Local).To(BeFalse())
			Expect(msgs[2].Text()).To(Equal("hello"))
			Expect(mgr.Submitting()).To(BeFalse())
		})

		It("shows the local entry while the send is outstanding", func() {
			release := make(chan struct{})
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				<-release
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, nil, nil
			}

			var observed []thread.Snapshot
			var obsMu sync.Mutex
			unsubscribe := mgr.Subscribe(func(s thread.Snapshot) {
				obsMu.Lock()
				observed = append(observed, s)
				obsMu.Unlock()
			})
			defer unsubscribe()

			done := make(chan error, 1)
			go func() { done <- mgr.PostMessage(ctx, "u-3", "hello") }()

			Eventually(mgr.Submitting).Should(BeTrue())
			msgs := mgr.Messages()
			Expect(msgs[len(msgs)-1].Local).To(BeTrue())
			Expect(strings.HasPrefix(msgs[len(msgs)-1].ID, "local-")).To(BeTrue())

			close(release)
			Eventually(done).Should(Receive(Succeed()))

			obsMu.Lock()
			defer obsMu.Unlock()
			Expect(observed).NotTo(BeEmpty())
			final := observed[len(observed)-1]
			Expect(final.Submitting).To(BeFalse())
			Expect(final.Messages[len(final.Messages)-1].ID).To(Equal("m-confirmed"))
		})

		It("rolls the optimistic entry back when the send fails", func() {
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				return thread.Message{}, nil, errBackend
			}

			err := mgr.PostMessage(ctx, "u-3", "hello")

			Expect(err).To(MatchError(errBackend))
			Expect(mgr.Messages()).To(HaveLen(2), "the optimistic entry must be rolled back")
			Expect(mgr.Submitting()).To(BeFalse())
			Expect(mgr.Err()).To(ContainSubstring("backend unavailable"))
		})

		It("folds the run's delta chunks into one assistant message", func() {
			chunks := make(chan stream.Chunk, 8)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.PostMessage(ctx, "u-3", "capital of France?")).To(Succeed())
			Expect(mgr.Waiting()).To(BeTrue())

			chunks <- stream.Chunk{Kind: stream.KindMessageCreated, RunID: "run-1", MessageID: "m-a", Role: thread.RoleAssistant}
			chunks <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-a", Text: "Pa"}
			chunks <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-a", Text: "ris"}
			chunks <- stream.Chunk{Kind: stream.KindDone, RunID: "run-1"}
			close(chunks)

			Eventually(mgr.Waiting).Should(BeFalse())

			var streamed *thread.Message
			for _, msg := range mgr.Messages() {
				if msg.ID == "m-a" {
					m := msg
					streamed = &m
				}
			}
			Expect(streamed).NotTo(BeNil())
			Expect(streamed.Role).To(Equal(thread.RoleAssistant))
			Expect(streamed.Text()).To(Equal("Paris"))
			Expect(mgr.Err()).To(BeEmpty())
		})

		It("surfaces a server error chunk and stops waiting", func() {
			chunks := make(chan stream.Chunk, 2)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			chunks <- stream.Chunk{Kind: stream.KindError, RunID: "run-1", Detail: "model overloaded"}
			close(chunks)

			Eventually(mgr.Waiting).Should(BeFalse())
			Expect(mgr.Err()).To(Equal("model overloaded"))
		})

		It("falls back to polling when the stream cannot be opened", func() {
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return nil, errBackend
			}

			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			Eventually(mgr.Waiting).Should(BeFalse())
			Expect(svc.count("RunStatus")).To(BeNumerically(">=", 1))
			Expect(mgr.Err()).To(BeEmpty(), "a completed run leaves no error overlay")
		})

		It("discards events for a run that has been superseded", func() {
			first := make(chan stream.Chunk)
			second := make(chan stream.Chunk, 2)
			streams := []chan stream.Chunk{first, second}
			runs := []string{"run-1", "run-2"}
			var idx int

			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: runs[idx], Status: thread.RunQueued}
				msg := thread.Message{ID: "m-post-" + run.ID, Role: thread.RoleUser}
				idx++
				return msg, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				for i, id := range runs {
					if id == runID {
						return streams[i], nil
					}
				}
				return nil, errBackend
			}

			Expect(mgr.PostMessage(ctx, "u-3", "first")).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "second")).To(Succeed())

			// The first run's watcher is still draining its stream; its
			// events must not touch state now that run-2 is tracked
			first <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-stale", Text: "stale"}
			close(first)

			second <- stream.Chunk{Kind: stream.KindMessageCreated, RunID: "run-2", MessageID: "m-live", Role: thread.RoleAssistant}
			second <- stream.Chunk{Kind: stream.KindDone, RunID: "run-2"}
			close(second)

			Eventually(mgr.Waiting).Should(BeFalse())

			ids := make([]string, 0)
			for _, msg := range mgr.Messages() {
				ids = append(ids, msg.ID)
			}
			Expect(ids).To(ContainElement("m-live"))
			Expect(ids).NotTo(ContainElement("m-stale"))
		})

		It("hands out snapshots that later deltas cannot change", func() {
			chunks := make(chan stream.Chunk, 4)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.PostMessage(ctx, "u-3", "capital of France?")).To(Succeed())

			textOf := func(msgs []thread.Message, id string) string {
				for _, msg := range msgs {
					if msg.ID == id {
						return msg.Text()
					}
				}
				return ""
			}

			chunks <- stream.Chunk{Kind: stream.KindMessageCreated, RunID: "run-1", MessageID: "m-a", Role: thread.RoleAssistant}
			chunks <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-a", Text: "Pa"}
			Eventually(func() string { return textOf(mgr.Messages(), "m-a") }).Should(Equal("Pa"))

			captured := mgr.Snapshot()
			capturedList := mgr.Messages()

			chunks <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-a", Text: "ris"}
			chunks <- stream.Chunk{Kind: stream.KindDone, RunID: "run-1"}
			close(chunks)

			Eventually(mgr.Waiting).Should(BeFalse())
			Expect(textOf(mgr.Messages(), "m-a")).To(Equal("Paris"))

			// Views handed out earlier keep the text they were taken with
			Expect(textOf(captured.Messages, "m-a")).To(Equal("Pa"))
			Expect(textOf(capturedList, "m-a")).To(Equal("Pa"))
		})

		It("cancels the abandoned run's stream so its producer is released", func() {
			first := make(chan stream.Chunk)
			second := make(chan stream.Chunk, 2)
			var mu sync.Mutex
			ctxs := map[string]context.Context{}
			runs := []string{"run-1", "run-2"}
			var idx int

			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: runs[idx], Status: thread.RunQueued}
				msg := thread.Message{ID: "m-post-" + run.ID, Role: thread.RoleUser}
				idx++
				return msg, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				mu.Lock()
				ctxs[runID] = sctx
				mu.Unlock()
				if runID == "run-1" {
					return first, nil
				}
				return second, nil
			}

			Expect(mgr.PostMessage(ctx, "u-3", "first")).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "second")).To(Succeed())

			// Supersession cancels the abandoned run's context
			Eventually(func() context.Context {
				mu.Lock()
				defer mu.Unlock()
				return ctxs["run-1"]
			}).ShouldNot(BeNil())
			mu.Lock()
			staleCtx := ctxs["run-1"]
			mu.Unlock()
			Eventually(staleCtx.Err).ShouldNot(BeNil())

			// A decoder-style producer keeps sending until its context fires;
			// with the run abandoned and its watcher gone, the sends must not
			// leave it blocked
			producerDone := make(chan struct{})
			go func() {
				defer close(producerDone)
				for i := 0; i < 2; i++ {
					select {
					case first <- stream.Chunk{Kind: stream.KindMessageDelta, RunID: "run-1", MessageID: "m-stale", Text: "stale"}:
					case <-staleCtx.Done():
						return
					}
				}
			}()
			Eventually(producerDone).Should(BeClosed())

			second <- stream.Chunk{Kind: stream.KindDone, RunID: "run-2"}
			close(second)
			Eventually(mgr.Waiting).Should(BeFalse())

			ids := make([]string, 0)
			for _, msg := range mgr.Messages() {
				ids = append(ids, msg.ID)
			}
			Expect(ids).NotTo(ContainElement("m-stale"))
		})
	})

	Describe("FetchMore", func() {
		It("is a silent no-op when no earlier page exists", func() {
			Expect(mgr.Load(ctx)).To(Succeed())
			before := svc.count("FetchMessages")

			Expect(mgr.FetchMore(ctx)).To(Succeed())

			Expect(svc.count("FetchMessages")).To(Equal(before))
			Expect(mgr.Err()).To(BeEmpty())
		})

		It("prepends older pages without duplicating the boundary", func() {
			svc.fetchMessagesFn = func(beforeID string, limit int) ([]thread.Message, bool, error) {
				switch beforeID {
				case "":
					return []thread.Message{{ID: "m-3"}, {ID: "m-4"}}, true, nil
				case "m-3":
					// Server pages overlap at the boundary
					return []thread.Message{{ID: "m-1"}, {ID: "m-2"}, {ID: "m-3"}}, true, nil
				case "m-1":
					return []thread.Message{{ID: "m-1"}}, false, nil
				default:
					return nil, false, nil
				}
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.FetchMore(ctx)).To(Succeed())

			ids := func() []string {
				out := make([]string, 0)
				for _, msg := range mgr.Messages() {
					out = append(out, msg.ID)
				}
				return out
			}
			Expect(ids()).To(Equal([]string{"m-1", "m-2", "m-3", "m-4"}))

			// The second page reports no more history; a third call is a no-op
			Expect(mgr.FetchMore(ctx)).To(Succeed())
			Expect(mgr.FetchMore(ctx)).To(Succeed())
			Expect(ids()).To(Equal([]string{"m-1", "m-2", "m-3", "m-4"}))
		})

		It("pages from the oldest confirmed message, skipping local entries", func() {
			var seenBefore string
			svc.fetchMessagesFn = func(beforeID string, limit int) ([]thread.Message, bool, error) {
				seenBefore = beforeID
				return []thread.Message{{ID: "m-1"}, {ID: "m-2"}}, true, nil
			}
			release := make(chan struct{})
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				<-release
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, nil, nil
			}

			Expect(mgr.Load(ctx)).To(Succeed())

			done := make(chan error, 1)
			go func() { done <- mgr.PostMessage(ctx, "u-3", "hi") }()
			Eventually(mgr.Submitting).Should(BeTrue())

			Expect(mgr.FetchMore(ctx)).To(Succeed())
			Expect(seenBefore).To(Equal("m-1"))

			close(release)
			Eventually(done).Should(Receive(Succeed()))
		})

		It("surfaces a page fetch failure without dropping loaded messages", func() {
			calls := 0
			svc.fetchMessagesFn = func(beforeID string, limit int) ([]thread.Message, bool, error) {
				calls++
				if calls == 1 {
					return []thread.Message{{ID: "m-3"}}, true, nil
				}
				return nil, false, errBackend
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.FetchMore(ctx)).To(MatchError(errBackend))

			Expect(mgr.Messages()).To(HaveLen(1))
			Expect(mgr.Err()).To(ContainSubstring("backend unavailable"))
		})
	})

	Describe("UploadAttachment", func() {
		BeforeEach(func() {
			Expect(mgr.Load(ctx)).To(Succeed())
		})

		It("tracks a successful upload in the attachment set", func() {
			att, err := mgr.UploadAttachment(ctx, "notes.txt", "text/plain", strings.NewReader("lecture notes"))

			Expect(err).NotTo(HaveOccurred())
			Expect(att.ID).To(Equal("f-1"))
			Expect(att.State).To(Equal(thread.AttachmentSuccess))

			got, ok := mgr.Attachment("f-1")
			Expect(ok).To(BeTrue())
			Expect(got.Name).To(Equal("notes.txt"))
		})

		It("flips the pending entry to error when the upload fails", func() {
			svc.uploadFn = func(name, contentType string) (thread.Attachment, error) {
				return thread.Attachment{}, errBackend
			}

			_, err := mgr.UploadAttachment(ctx, "notes.txt", "text/plain", strings.NewReader("x"))

			Expect(err).To(MatchError(errBackend))
			got, ok := mgr.Attachment("pending-notes.txt")
			Expect(ok).To(BeTrue())
			Expect(got.State).To(Equal(thread.AttachmentError))
			Expect(mgr.Err()).NotTo(BeEmpty())
		})
	})

	Describe("publishing", func() {
		BeforeEach(func() {
			Expect(mgr.Load(ctx)).To(Succeed())
		})

		It("marks the thread public on publish and private on unpublish", func() {
			Expect(mgr.Publish(ctx)).To(Succeed())
			Expect(mgr.Thread().Public).To(BeTrue())

			Expect(mgr.Unpublish(ctx)).To(Succeed())
			Expect(mgr.Thread().Public).To(BeFalse())
		})

		It("treats a permission refusal as an ordinary error overlay", func() {
			svc.setPublishedFn = func(published bool) error { return errBackend }

			Expect(mgr.Publish(ctx)).To(MatchError(errBackend))
			Expect(mgr.Thread().Public).To(BeFalse())
			Expect(mgr.Err()).NotTo(BeEmpty())
			Expect(mgr.Closed()).To(BeFalse(), "a refused publish must not tear the manager down")
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			Expect(mgr.Load(ctx)).To(Succeed())
		})

		It("closes the manager on success", func() {
			Expect(mgr.Delete(ctx)).To(Succeed())
			Expect(mgr.Closed()).To(BeTrue())
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(MatchError(thread.ErrClosed))
		})

		It("keeps the manager alive when the delete is refused", func() {
			svc.deleteFn = func() error { return errBackend }

			Expect(mgr.Delete(ctx)).To(MatchError(errBackend))
			Expect(mgr.Closed()).To(BeFalse())
			Expect(mgr.Err()).NotTo(BeEmpty())
		})
	})

	Describe("DismissError", func() {
		It("clears the overlay without touching messages", func() {
			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "")).To(MatchError(thread.ErrEmptyMessage))
			Expect(mgr.Err()).NotTo(BeEmpty())

			mgr.DismissError()

			Expect(mgr.Err()).To(BeEmpty())
			Expect(mgr.Messages()).To(HaveLen(2))
		})
	})

	Describe("Close", func() {
		It("stops in-flight stream events from mutating state", func() {
			chunks := make(chan stream.Chunk, 2)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			mgr.Close()
			before := len(mgr.Messages())

			chunks <- stream.Chunk{Kind: stream.KindMessageCreated, RunID: "run-1", MessageID: "m-late", Role: thread.RoleAssistant}
			close(chunks)

			Consistently(func() int { return len(mgr.Messages()) }, 100*time.Millisecond).Should(Equal(before))
		})

		It("cancels the tracked run's stream context", func() {
			ready := make(chan struct{})
			var streamCtx context.Context
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				streamCtx = sctx
				close(ready)
				return make(chan stream.Chunk), nil
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())
			Eventually(ready).Should(BeClosed())

			mgr.Close()

			Eventually(streamCtx.Err).ShouldNot(BeNil())
		})

		It("delivers nothing to subscribers after teardown", func() {
			chunks := make(chan stream.Chunk, 2)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			var count int
			var countMu sync.Mutex
			unsubscribe := mgr.Subscribe(func(thread.Snapshot) {
				countMu.Lock()
				count++
				countMu.Unlock()
			})
			defer unsubscribe()

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			mgr.Close()
			countMu.Lock()
			atClose := count
			countMu.Unlock()

			chunks <- stream.Chunk{Kind: stream.KindDone, RunID: "run-1"}
			close(chunks)

			Consistently(func() int {
				countMu.Lock()
				defer countMu.Unlock()
				return count
			}, 100*time.Millisecond).Should(Equal(atClose))
		})

		It("is idempotent and rejects further operations", func() {
			Expect(mgr.Load(ctx)).To(Succeed())
			mgr.Close()
			mgr.Close()

			Expect(mgr.Load(ctx)).To(MatchError(thread.ErrClosed))
			Expect(mgr.FetchMore(ctx)).To(MatchError(thread.ErrClosed))
			Expect(mgr.Publish(ctx)).To(MatchError(thread.ErrClosed))
			Expect(mgr.Delete(ctx)).To(MatchError(thread.ErrClosed))
		})
	})

	Describe("Subscribe", func() {
		It("delivers a snapshot on every state change until unsubscribed", func() {
			var count int
			var countMu sync.Mutex
			unsubscribe := mgr.Subscribe(func(thread.Snapshot) {
				countMu.Lock()
				count++
				countMu.Unlock()
			})

			Expect(mgr.Load(ctx)).To(Succeed())
			countMu.Lock()
			afterLoad := count
			countMu.Unlock()
			Expect(afterLoad).To(BeNumerically(">=", 2), "loading and loaded are separate notifications")

			unsubscribe()
			mgr.DismissError()

			countMu.Lock()
			defer countMu.Unlock()
			Expect(count).To(Equal(afterLoad))
		})

		It("never reaches a removed subscriber from a run finishing later", func() {
			chunks := make(chan stream.Chunk, 2)
			svc.postMessageFn = func(userID, text string, attachmentIDs []string) (thread.Message, *thread.Run, error) {
				run := thread.Run{ID: "run-1", Status: thread.RunQueued}
				return thread.Message{ID: "m-confirmed", Role: thread.RoleUser}, &run, nil
			}
			svc.streamRunFn = func(sctx context.Context, runID string) (<-chan stream.Chunk, error) {
				return chunks, nil
			}

			Expect(mgr.Load(ctx)).To(Succeed())
			Expect(mgr.PostMessage(ctx, "u-3", "hello")).To(Succeed())

			// The consumer shuts down its channel while the run is still
			// outstanding; a delivery after this point would panic
			updates := make(chan thread.Snapshot, 16)
			unsubscribe := mgr.Subscribe(func(snap thread.Snapshot) {
				select {
				case updates <- snap:
				default:
				}
			})
			unsubscribe()
			close(updates)

			chunks <- stream.Chunk{Kind: stream.KindDone, RunID: "run-1"}
			close(chunks)

			Eventually(mgr.Waiting).Should(BeFalse())
		})
	})
})
