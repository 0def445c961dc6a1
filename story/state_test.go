package story

import "testing"

func TestStoryStateLifecycle(t *testing.T) {
	s := newStoryState()
	if s.Phase() != AwaitingFirstChapter || s.IsComplete() || s.current() != nil {
		t.Fatal("fresh state is not awaiting")
	}

	outlines := []ChapterOutline{{Number: 1, Title: "a"}, {Number: 2, Title: "b"}, {Number: 3, Title: "c"}}
	s.start(newChapter(outlines[0], "one"), outlines[1:], "noir")
	if s.Phase() != ChapterReady || s.TotalChapters != 3 || s.CurrentChapterIndex != 0 {
		t.Fatalf("after start: %+v", s)
	}

	for i, o := range outlines[1:] {
		s.advance(newChapter(o, "more"))
		if got := len(s.Realized) + len(s.Pending); got != s.TotalChapters {
			t.Fatalf("step %d: realized+pending = %d", i, got)
		}
	}
	if s.Phase() != AllComplete || s.CurrentChapterIndex != 2 {
		t.Errorf("end: phase %v index %d", s.Phase(), s.CurrentChapterIndex)
	}
	if s.TotalCharacters != len("one")+2*len("more") {
		t.Errorf("total characters = %d", s.TotalCharacters)
	}
}

func TestStoryStateCloneIsolation(t *testing.T) {
	s := newStoryState()
	s.start(newChapter(ChapterOutline{Number: 1, Title: "a"}, "text"), nil, "")
	c := s.clone()
	c.Realized[0].Feedback = append(c.Realized[0].Feedback, "x")
	c.Realized[0].Title = "changed"
	if len(s.Realized[0].Feedback) != 0 || s.Realized[0].Title != "a" {
		t.Error("clone aliases the state")
	}
}

func TestChapterRendered(t *testing.T) {
	c := newChapter(ChapterOutline{Number: 2, Title: "Fog"}, "It rolled in.")
	if got := c.Rendered(); got != "Chapter 2: Fog\n\nIt rolled in." {
		t.Errorf("Rendered = %q", got)
	}
	if c.CharacterCount != len("It rolled in.") {
		t.Errorf("count = %d", c.CharacterCount)
	}
}
