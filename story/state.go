package story

import "fmt"

// Chapter is one realized chapter. Content never changes after creation;
// Feedback only grows.
type Chapter struct {
	Number         int      `json:"number"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	CharacterCount int      `json:"character_count"`
	Feedback       []string `json:"feedback"`
}

// Rendered is the chapter as shown to a reader.
func (c Chapter) Rendered() string {
	return fmt.Sprintf("Chapter %d: %s\n\n%s", c.Number, c.Title, c.Content)
}

func newChapter(outline ChapterOutline, content string) Chapter {
	return Chapter{
		Number:         outline.Number,
		Title:          outline.Title,
		Content:        content,
		CharacterCount: len(content),
		Feedback:       []string{},
	}
}

// Phase is the chapter-advance state.
type Phase int

const (
	AwaitingFirstChapter Phase = iota
	ChapterReady
	AllComplete
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstChapter:
		return "awaiting_first_chapter"
	case ChapterReady:
		return "chapter_ready"
	case AllComplete:
		return "all_complete"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// StoryState 记录一个故事的进度：已完成章节、待生成大纲、游标和总长度。
type StoryState struct {
	CurrentChapterIndex int
	TotalChapters       int
	Realized            []Chapter
	Pending             []ChapterOutline
	TotalCharacters     int
	Style               string
}

func newStoryState() *StoryState {
	return &StoryState{CurrentChapterIndex: -1}
}

// IsComplete is true once every outline has been realized.
func (s *StoryState) IsComplete() bool {
	return len(s.Pending) == 0 && len(s.Realized) > 0
}

func (s *StoryState) Phase() Phase {
	switch {
	case len(s.Realized) == 0:
		return AwaitingFirstChapter
	case s.IsComplete():
		return AllComplete
	default:
		return ChapterReady
	}
}

// start records the first chapter and queues the remaining outlines.
func (s *StoryState) start(first Chapter, rest []ChapterOutline, style string) {
	s.Realized = []Chapter{first}
	s.Pending = append([]ChapterOutline(nil), rest...)
	s.TotalChapters = 1 + len(rest)
	s.CurrentChapterIndex = 0
	s.TotalCharacters = first.CharacterCount
	s.Style = style
}

// current returns the chapter under the cursor, if any.
func (s *StoryState) current() *Chapter {
	if s.CurrentChapterIndex < 0 || s.CurrentChapterIndex >= len(s.Realized) {
		return nil
	}
	return &s.Realized[s.CurrentChapterIndex]
}

// advance pops the head outline after its chapter has been developed.
func (s *StoryState) advance(c Chapter) {
	s.Pending = s.Pending[1:]
	s.Realized = append(s.Realized, c)
	s.CurrentChapterIndex++
	s.TotalCharacters += c.CharacterCount
}

// clone returns a deep copy safe to hand to callers.
func (s *StoryState) clone() StoryState {
	out := *s
	out.Realized = make([]Chapter, len(s.Realized))
	for i, c := range s.Realized {
		c.Feedback = append([]string{}, c.Feedback...)
		out.Realized[i] = c
	}
	out.Pending = make([]ChapterOutline, len(s.Pending))
	copy(out.Pending, s.Pending)
	return out
}
