package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"collab_story_weaver/llm"
)

// Orchestrator drives the role protocol for one story. It is the only writer
// of the conversation log and the story state. It is not safe for concurrent
// use; Session serialises access.
type Orchestrator struct {
	llm      llm.Client
	agents   map[RoleID]*Agent
	log      *ConversationLog
	state    *StoryState
	parser   *OutlineParser
	window   int
	lang     Language
	parallel bool
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Orchestrator)

// WithHistoryWindow sets how many recent log entries each role sees.
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) { o.window = n }
}

func WithLanguage(lang Language) Option {
	return func(o *Orchestrator) { o.lang = lang }
}

// WithParallelCharacters fans character roles out concurrently. Every
// character sees the same log snapshot and replies are appended in outline
// order, so the result matches the sequential run.
func WithParallelCharacters(on bool) Option {
	return func(o *Orchestrator) { o.parallel = on }
}

// WithNotifier registers the chat-update sink.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithParser(p *OutlineParser) Option {
	return func(o *Orchestrator) { o.parser = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func NewOrchestrator(client llm.Client, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	o := &Orchestrator{
		llm:    client,
		agents: make(map[RoleID]*Agent),
		state:  newStoryState(),
		window: DefaultHistoryWindow,
		lang:   English,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.parser == nil {
		o.parser = NewOutlineParser()
	}
	o.logger = o.logger.With("component", "orchestrator")
	o.log = NewConversationLog(o.notifier)

	for _, kind := range []RoleKind{Arbiter, Planner, Narrator, Geographer} {
		profile, _ := StandingProfile(kind)
		a, err := NewAgent(Standing(kind), profile, o.llm, o.window, o.logger)
		if err != nil {
			return nil, err
		}
		o.agents[a.ID()] = a
	}
	return o, nil
}

// AddCharacterAgent registers a character role. Re-adding a name whose
// derived identifier already exists replaces the previous agent.
func (o *Orchestrator) AddCharacterAgent(name string) (RoleID, error) {
	id := CharacterID(name)
	if id.Name == "" {
		return RoleID{}, errors.New("character name is required")
	}
	a, err := NewAgent(id, CharacterProfile(name), o.llm, o.window, o.logger)
	if err != nil {
		return RoleID{}, err
	}
	if _, ok := o.agents[id]; ok {
		o.logger.Debug("replacing character agent", "role", id.String())
	}
	o.agents[id] = a
	return id, nil
}

// Reset 清空对话记录和故事进度，并移除所有角色代理。
func (o *Orchestrator) Reset() {
	o.log.reset()
	o.state = newStoryState()
	for id := range o.agents {
		if id.Kind == Character {
			delete(o.agents, id)
		}
	}
}

// StoryResult is returned by GenerateStory.
type StoryResult struct {
	FirstChapter    string    `json:"first_chapter"`
	Chapter         Chapter   `json:"chapter"`
	Conversation    []Message `json:"conversation"`
	HasMoreChapters bool      `json:"has_more_chapters"`
	TotalChapters   int       `json:"total_chapters"`
	TotalCharacters int       `json:"total_characters"`
}

// GenerateStory starts a fresh story: it plans every chapter, develops the
// first one and queues the rest for GetNextChapter.
func (o *Orchestrator) GenerateStory(ctx context.Context, req StoryRequest) (StoryResult, error) {
	o.Reset()
	for _, name := range req.CharacterNames {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := o.AddCharacterAgent(name); err != nil {
			return StoryResult{}, err
		}
	}
	o.logger.Info("story started",
		"characters", len(req.CharacterNames),
		"target_length", req.TargetLength,
		"style", req.Style)

	arbiter := o.agents[Standing(Arbiter)]
	brief, err := arbiter.Respond(ctx, buildKickoffPrompt(req), o.log.Snapshot(), Standing(Planner))
	if err != nil {
		return StoryResult{}, err
	}
	o.record(arbiter, Standing(Planner), brief)

	planner := o.agents[Standing(Planner)]
	outlineText, err := planner.Respond(ctx, buildPlannerPrompt(req, o.lang), o.log.Snapshot(), Everyone)
	if err != nil {
		return StoryResult{}, err
	}
	o.record(planner, Everyone, outlineText)

	outlines, err := o.parser.Parse(outlineText)
	if err != nil {
		o.logger.Warn("planner outline rejected", "error", err)
		if errors.Is(err, ErrNoChaptersFound) {
			return StoryResult{}, fmt.Errorf("%w: %w", ErrEmptyOutline, err)
		}
		return StoryResult{}, fmt.Errorf("parsing planner outline: %w", err)
	}
	o.logger.Info("outline parsed", "chapters", len(outlines))

	first, err := o.develop(ctx, outlines[0], req.Style, nil)
	if err != nil {
		return StoryResult{}, err
	}
	o.state.start(first, outlines[1:], req.Style)

	return StoryResult{
		FirstChapter:    first.Rendered(),
		Chapter:         first,
		Conversation:    o.log.Snapshot(),
		HasMoreChapters: len(o.state.Pending) > 0,
		TotalChapters:   o.state.TotalChapters,
		TotalCharacters: o.state.TotalCharacters,
	}, nil
}

// ChapterAdvance is returned by GetNextChapter. Chapter is nil once the
// story is complete.
type ChapterAdvance struct {
	Chapter         *Chapter `json:"chapter,omitempty"`
	ChapterIndex    int      `json:"chapter_index"`
	IsComplete      bool     `json:"is_complete"`
	TotalChapters   int      `json:"total_chapters"`
	TotalCharacters int      `json:"total_characters"`
}

// GetNextChapter records optional feedback on the current chapter and then
// develops the next pending outline. Once nothing is pending it returns the
// terminal summary without calling any role.
func (o *Orchestrator) GetNextChapter(ctx context.Context, feedback string) (ChapterAdvance, error) {
	st := o.state
	if st.Phase() == AwaitingFirstChapter {
		return ChapterAdvance{}, ErrStoryNotStarted
	}

	cur := st.current()
	prevFeedback := len(cur.Feedback)
	if strings.TrimSpace(feedback) != "" {
		cur.Feedback = append(cur.Feedback, feedback)
	}

	if len(st.Pending) == 0 {
		return ChapterAdvance{
			ChapterIndex:    st.CurrentChapterIndex,
			IsComplete:      true,
			TotalChapters:   len(st.Realized),
			TotalCharacters: st.TotalCharacters,
		}, nil
	}

	next, err := o.develop(ctx, st.Pending[0], st.Style, cur.Feedback)
	if err != nil {
		cur.Feedback = cur.Feedback[:prevFeedback]
		return ChapterAdvance{}, err
	}
	st.advance(next)
	o.logger.Info("chapter realized",
		"chapter", next.Number,
		"pending", len(st.Pending),
		"total_characters", st.TotalCharacters)

	c := next
	return ChapterAdvance{
		Chapter:         &c,
		ChapterIndex:    st.CurrentChapterIndex,
		IsComplete:      st.IsComplete(),
		TotalChapters:   st.TotalChapters,
		TotalCharacters: st.TotalCharacters,
	}, nil
}

// ProcessChapterFeedback lets the Arbiter and then the Planner react to
// reader feedback before the next chapter is developed. It returns the log
// entries it added and leaves the story state untouched.
func (o *Orchestrator) ProcessChapterFeedback(ctx context.Context, feedback string) ([]Message, error) {
	if o.state.Phase() == AwaitingFirstChapter {
		return nil, ErrStoryNotStarted
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, errors.New("feedback is required")
	}
	mark := o.log.Len()

	arbiter := o.agents[Standing(Arbiter)]
	ruling, err := arbiter.Respond(ctx, buildArbiterFeedbackPrompt(feedback, o.state.current()), o.log.Snapshot(), Standing(Planner))
	if err != nil {
		return o.log.Since(mark), err
	}
	o.record(arbiter, Standing(Planner), ruling)

	planner := o.agents[Standing(Planner)]
	plan, err := planner.Respond(ctx, buildPlannerFeedbackPrompt(feedback, ruling, o.state.Pending), o.log.Snapshot(), Everyone)
	if err != nil {
		return o.log.Since(mark), err
	}
	o.record(planner, Everyone, plan)

	return o.log.Since(mark), nil
}

// develop 依次调用地理、角色和叙述者，把一份大纲扩写成章节。
// Any role failure aborts the chapter; replies already logged stay logged.
func (o *Orchestrator) develop(ctx context.Context, outline ChapterOutline, style string, feedback []string) (Chapter, error) {
	logger := o.logger.With("chapter", outline.Number)

	geographer := o.agents[Standing(Geographer)]
	geography, err := geographer.Respond(ctx, buildGeographyPrompt(outline), o.log.Snapshot(), Standing(Narrator))
	if err != nil {
		return Chapter{}, err
	}
	o.record(geographer, Standing(Narrator), geography)

	var cast []*Agent
	seen := make(map[RoleID]bool)
	for _, name := range outline.CharactersInvolved {
		id := CharacterID(name)
		a, ok := o.agents[id]
		if !ok {
			logger.Debug("outline names a character without a role, skipping", "name", name)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		cast = append(cast, a)
	}

	characters, err := o.characterReplies(ctx, cast, buildCharacterPrompt(outline))
	if err != nil {
		return Chapter{}, err
	}

	narrator := o.agents[Standing(Narrator)]
	body, err := narrator.Respond(ctx, buildNarratorPrompt(outline, geography, characters, style, feedback), o.log.Snapshot(), Everyone)
	if err != nil {
		return Chapter{}, err
	}
	o.record(narrator, Everyone, body)

	logger.Debug("chapter developed", "characters", len(cast), "length", len(body))
	return newChapter(outline, body), nil
}

func (o *Orchestrator) characterReplies(ctx context.Context, cast []*Agent, prompt string) ([]string, error) {
	replies := make([]string, len(cast))
	if !o.parallel {
		for i, a := range cast {
			out, err := a.Respond(ctx, prompt, o.log.Snapshot(), Standing(Narrator))
			if err != nil {
				return nil, err
			}
			o.record(a, Standing(Narrator), out)
			replies[i] = out
		}
		return replies, nil
	}

	history := o.log.Snapshot()
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range cast {
		g.Go(func() error {
			out, err := a.Respond(gctx, prompt, history, Standing(Narrator))
			if err != nil {
				return err
			}
			replies[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, a := range cast {
		o.record(a, Standing(Narrator), replies[i])
	}
	return replies, nil
}

func (o *Orchestrator) record(a *Agent, to RoleID, content string) {
	o.log.Append(Message{
		Sender:     a.ID(),
		SenderName: a.Profile().Label(),
		Recipient:  to,
		Content:    content,
		Timestamp:  o.now(),
	})
}

// Conversation returns a copy of the whole log.
func (o *Orchestrator) Conversation() []Message {
	return o.log.Snapshot()
}

// StoryView is a read-only copy of the story progress.
type StoryView struct {
	Phase           Phase     `json:"phase"`
	CurrentChapter  int       `json:"current_chapter_index"`
	TotalChapters   int       `json:"total_chapters"`
	PendingChapters int       `json:"pending_chapters"`
	TotalCharacters int       `json:"total_characters"`
	IsComplete      bool      `json:"is_complete"`
	Style           string    `json:"style"`
	Chapters        []Chapter `json:"chapters"`
	Characters      []string  `json:"characters"`
	Conversation    []Message `json:"conversation"`
}

func (o *Orchestrator) Snapshot() StoryView {
	st := o.state.clone()
	var names []string
	for id, a := range o.agents {
		if id.Kind == Character {
			names = append(names, strings.TrimPrefix(a.Profile().DisplayName, "Character_"))
		}
	}
	sort.Strings(names)
	return StoryView{
		Phase:           o.state.Phase(),
		CurrentChapter:  st.CurrentChapterIndex,
		TotalChapters:   st.TotalChapters,
		PendingChapters: len(st.Pending),
		TotalCharacters: st.TotalCharacters,
		IsComplete:      o.state.IsComplete(),
		Style:           st.Style,
		Chapters:        st.Realized,
		Characters:      names,
		Conversation:    o.log.Snapshot(),
	}
}
