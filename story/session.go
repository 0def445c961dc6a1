package story

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab_story_weaver/llm"
)

// Session 持有一个故事的编排器和聊天推送队列。
// Every operation holds the session lock, so a reset can never interleave
// with a chapter advance.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu   sync.Mutex
	orch *Orchestrator
	feed *Feed
}

// NewSession creates an idle session; no role is called until GenerateStory.
func NewSession(client llm.Client, feedCapacity int, opts ...Option) (*Session, error) {
	feed := NewFeed(feedCapacity)
	orch, err := NewOrchestrator(client, append(opts, WithNotifier(feed))...)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		orch:      orch,
		feed:      feed,
	}, nil
}

func (s *Session) GenerateStory(ctx context.Context, req StoryRequest) (StoryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.GenerateStory(ctx, req)
}

func (s *Session) NextChapter(ctx context.Context, feedback string) (ChapterAdvance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.GetNextChapter(ctx, feedback)
}

func (s *Session) ProcessFeedback(ctx context.Context, feedback string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.ProcessChapterFeedback(ctx, feedback)
}

func (s *Session) AddCharacter(name string) (RoleID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.AddCharacterAgent(name)
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orch.Reset()
}

func (s *Session) Snapshot() StoryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.Snapshot()
}

// Updates streams every message appended to the conversation log.
func (s *Session) Updates() <-chan Message {
	return s.feed.C()
}

func (s *Session) DroppedUpdates() int64 {
	return s.feed.Dropped()
}

// Close ends the update stream.
func (s *Session) Close() {
	s.feed.Close()
}
