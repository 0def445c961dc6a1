package story

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

const canonicalOutline = `Chapter 1: The Locked Room
Summary: A body is found in a room bolted from the inside.
Key events:
- The butler raises the alarm
- Ana examines the door
Characters involved:
- Ana
- Leo
Locations:
- The library
- The east corridor

Chapter 2: False Keys
Summary: Leo finds a second key.
It does not fit any lock in the house.
Key events:
- Leo searches the study
Characters involved:
- Leo
Locations:
- The study

Chapter 3: The Draught
Summary: The window was never shut.
Key events:
- Ana reconstructs the night
Characters involved:
- Ana
Locations:
- The garden
`

func TestParseOutlineCanonical(t *testing.T) {
	got, err := ParseOutline(canonicalOutline)
	if err != nil {
		t.Fatalf("ParseOutline: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d chapters, want 3", len(got))
	}

	want := ChapterOutline{
		Number:             1,
		Title:              "The Locked Room",
		Summary:            "A body is found in a room bolted from the inside.",
		KeyEvents:          []string{"The butler raises the alarm", "Ana examines the door"},
		CharactersInvolved: []string{"Ana", "Leo"},
		Locations:          []string{"The library", "The east corridor"},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("chapter 1 mismatch\n got: %+v\nwant: %+v", got[0], want)
	}
	if got[1].Summary != "Leo finds a second key. It does not fit any lock in the house." {
		t.Errorf("summary continuation not joined: %q", got[1].Summary)
	}
	for i, c := range got {
		if c.Number != i+1 {
			t.Errorf("chapter %d has number %d", i, c.Number)
		}
	}
}

func TestParseOutlineVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, got []ChapterOutline)
	}{
		{
			name:  "missing locations gets placeholder",
			input: "Chapter 1: Alone\nSummary: Nothing moves.\nKey events:\n- Silence\nCharacters involved:\n- Ana\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if !reflect.DeepEqual(got[0].Locations, []string{PlaceholderLocation}) {
					t.Errorf("locations = %v", got[0].Locations)
				}
			},
		},
		{
			name:  "every list empty",
			input: "Chapter 4: Bare\nSummary: Only a summary.\nKey events:\n-\n-   \n",
			check: func(t *testing.T, got []ChapterOutline) {
				c := got[0]
				if c.Number != 4 {
					t.Errorf("number = %d, want 4", c.Number)
				}
				if !reflect.DeepEqual(c.KeyEvents, []string{PlaceholderEvent}) ||
					!reflect.DeepEqual(c.CharactersInvolved, []string{PlaceholderCharacter}) ||
					!reflect.DeepEqual(c.Locations, []string{PlaceholderLocation}) {
					t.Errorf("placeholders not substituted: %+v", c)
				}
			},
		},
		{
			name: "markdown decoration",
			input: "Here is the plan.\n\n## **Chapter 1: Smoke**\n**Summary:** The mill burns.\n\n**Key events:**\n* The alarm bell\n* A rescue\n\n" +
				"**Characters involved:**\n1. Ana\n2. Leo\n\n**Locations:**\n+ The mill\n",
			check: func(t *testing.T, got []ChapterOutline) {
				c := got[0]
				if c.Title != "Smoke" || c.Summary != "The mill burns." {
					t.Errorf("header parsed as %q / %q", c.Title, c.Summary)
				}
				if !reflect.DeepEqual(c.KeyEvents, []string{"The alarm bell", "A rescue"}) {
					t.Errorf("events = %v", c.KeyEvents)
				}
				if !reflect.DeepEqual(c.CharactersInvolved, []string{"Ana", "Leo"}) {
					t.Errorf("characters = %v", c.CharactersInvolved)
				}
				if !reflect.DeepEqual(c.Locations, []string{"The mill"}) {
					t.Errorf("locations = %v", c.Locations)
				}
			},
		},
		{
			name:  "spanish keywords",
			input: "Capítulo 1: La Llave\nResumen: Alguien cerró la puerta.\nEventos clave:\n- Un grito\nPersonajes involucrados:\n- Ana\nUbicaciones:\n- El sótano\n",
			check: func(t *testing.T, got []ChapterOutline) {
				c := got[0]
				if c.Title != "La Llave" || c.Summary != "Alguien cerró la puerta." {
					t.Errorf("header = %q / %q", c.Title, c.Summary)
				}
				if !reflect.DeepEqual(c.Locations, []string{"El sótano"}) {
					t.Errorf("locations = %v", c.Locations)
				}
			},
		},
		{
			name:  "mixed casing",
			input: "CHAPTER 2: Loud\nSUMMARY: shouting\nkey EVENTS:\n- one\nCHARACTERS INVOLVED:\n- Leo\nLOCATIONS:\n- Hall\n",
			check: func(t *testing.T, got []ChapterOutline) {
				c := got[0]
				if c.Number != 2 || c.Summary != "shouting" || c.KeyEvents[0] != "one" || c.Locations[0] != "Hall" {
					t.Errorf("parsed %+v", c)
				}
			},
		},
		{
			name:  "header without number or title",
			input: "Chapter 1: First\nSummary: a\nChapter\nSummary: b\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 2 {
					t.Fatalf("got %d chapters", len(got))
				}
				if got[1].Number != 2 || got[1].Title != "Chapter 2" {
					t.Errorf("second chapter = %d %q", got[1].Number, got[1].Title)
				}
			},
		},
		{
			name:  "prose mentioning chapters is not a header",
			input: "Chapter 1: Start\nSummary: Chapter one begins in the rain.\nChapters can be short.\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 1 {
					t.Fatalf("got %d chapters, want 1", len(got))
				}
				if got[0].Summary != "Chapter one begins in the rain. Chapters can be short." {
					t.Errorf("summary = %q", got[0].Summary)
				}
			},
		},
		{
			name: "spelled-out chapter number starts a new chapter",
			input: "Chapter 1: Arrival\nSummary: Ana arrives.\nKey events:\n- a1\nCharacters involved:\n- Ana\nLocations:\n- Hall\n\n" +
				"Chapter Two: The Body\nSummary: Leo finds the body.\nKey events:\n- b1\nCharacters involved:\n- Leo\nLocations:\n- Library\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 2 {
					t.Fatalf("got %d chapters, want 2", len(got))
				}
				want := []ChapterOutline{
					{Number: 1, Title: "Arrival", Summary: "Ana arrives.", KeyEvents: []string{"a1"}, CharactersInvolved: []string{"Ana"}, Locations: []string{"Hall"}},
					{Number: 2, Title: "The Body", Summary: "Leo finds the body.", KeyEvents: []string{"b1"}, CharactersInvolved: []string{"Leo"}, Locations: []string{"Library"}},
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("got  %+v\nwant %+v", got, want)
				}
			},
		},
		{
			name:  "word and roman numbers only",
			input: "Chapter One: Dawn\nSummary: a\nchapter two: Dusk\nSummary: b\nCHAPTER III: Night\nCapítulo Cuatro: Alba\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 4 {
					t.Fatalf("got %d chapters, want 4", len(got))
				}
				for i, title := range []string{"Dawn", "Dusk", "Night", "Alba"} {
					if got[i].Number != i+1 || got[i].Title != title {
						t.Errorf("chapter %d = %d %q", i, got[i].Number, got[i].Title)
					}
				}
			},
		},
		{
			name:  "multi-word prose with a colon is not a header",
			input: "Chapter 1: Start\nSummary: Rain.\nChapter one begins: in the rain.\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 1 || got[0].Summary != "Rain. Chapter one begins: in the rain." {
					t.Errorf("got %+v", got)
				}
			},
		},
		{
			name:  "second summary is appended",
			input: "Chapter 1: Twice\nSummary: First part.\nKey events:\n- e\nSummary: Second part.\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if got[0].Summary != "First part. Second part." {
					t.Errorf("summary = %q", got[0].Summary)
				}
				if !reflect.DeepEqual(got[0].KeyEvents, []string{"e"}) {
					t.Errorf("events = %v", got[0].KeyEvents)
				}
			},
		},
		{
			name:  "inline markup keeps code spans and link labels",
			input: "Chapter 1: Signals\nSummary: Ana decodes `0xFF` with [the old map](https://example.com/map).\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if got[0].Summary != "Ana decodes `0xFF` with the old map." {
					t.Errorf("summary = %q", got[0].Summary)
				}
			},
		},
		{
			name:  "preamble lines before first chapter are ignored",
			input: "Summary: stray\n- stray item\nChapter 1: Real\n",
			check: func(t *testing.T, got []ChapterOutline) {
				if len(got) != 1 || got[0].Summary != "" {
					t.Errorf("got %+v", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutline(tt.input)
			if err != nil {
				t.Fatalf("ParseOutline: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestParseOutlineNoChapters(t *testing.T) {
	for _, input := range []string{"", "   \n\n", "I could not come up with a plan.", "Summary: orphan\n- item"} {
		_, err := ParseOutline(input)
		if !errors.Is(err, ErrNoChaptersFound) {
			t.Errorf("ParseOutline(%q) error = %v, want ErrNoChaptersFound", input, err)
		}
	}
}

func TestParseOutlineStrict(t *testing.T) {
	p := NewOutlineParser()
	p.Strict = true

	_, err := p.Parse("Summary: too early\nChapter 1: Late\n")
	var mse *MalformedSectionError
	if !errors.As(err, &mse) {
		t.Fatalf("expected MalformedSectionError, got %v", err)
	}
	if mse.Line != 1 {
		t.Errorf("line = %d, want 1", mse.Line)
	}

	if _, err := p.Parse(canonicalOutline); err != nil {
		t.Errorf("strict parse of canonical outline failed: %v", err)
	}

	_, err = p.Parse("Chapter 1: Twice\nSummary: a\nKey events:\n- e\nSummary: b\n")
	if !errors.As(err, &mse) || mse.Line != 5 {
		t.Errorf("duplicate summary err = %v, want MalformedSectionError on line 5", err)
	}
}

func TestParseOutlineWithoutMarkdownPass(t *testing.T) {
	p := NewOutlineParser()
	p.Markdown = false

	got, err := p.Parse(canonicalOutline)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := ParseOutline(canonicalOutline)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("plain and markdown passes disagree on canonical text")
	}
}

// TestParseOutlineShuffled generates outlines with shuffled section order,
// random keyword casing and random blank lines.
func TestParseOutlineShuffled(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomCase := func(s string) string {
		switch rng.Intn(3) {
		case 0:
			return strings.ToUpper(s)
		case 1:
			return strings.ToLower(s)
		default:
			return s
		}
	}
	blank := func() string {
		return strings.Repeat("\n", rng.Intn(3))
	}

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(6)
		var sb strings.Builder
		type expect struct{ events, chars, locs []string }
		var want []expect
		for c := 1; c <= n; c++ {
			fmt.Fprintf(&sb, "%s %d: Title %d\n%s", randomCase("Chapter"), c, c, blank())

			e := expect{}
			for i, k := 0, rng.Intn(4); i < k; i++ {
				e.events = append(e.events, fmt.Sprintf("event %d.%d", c, i))
			}
			for i, k := 0, rng.Intn(3); i < k; i++ {
				e.chars = append(e.chars, fmt.Sprintf("Person%d", i))
			}
			for i, k := 0, rng.Intn(3); i < k; i++ {
				e.locs = append(e.locs, fmt.Sprintf("Place %d", i))
			}
			want = append(want, e)

			sections := []string{
				randomCase("Summary:") + fmt.Sprintf(" summary of %d\n", c),
				listSection(randomCase("Key events:"), e.events, blank),
				listSection(randomCase("Characters involved:"), e.chars, blank),
				listSection(randomCase("Locations:"), e.locs, blank),
			}
			rng.Shuffle(len(sections), func(i, j int) { sections[i], sections[j] = sections[j], sections[i] })
			for _, s := range sections {
				sb.WriteString(s)
				sb.WriteString(blank())
			}
		}

		got, err := ParseOutline(sb.String())
		if err != nil {
			t.Fatalf("iteration %d: %v\n%s", iter, err, sb.String())
		}
		if len(got) != n {
			t.Fatalf("iteration %d: got %d chapters, want %d\n%s", iter, len(got), n, sb.String())
		}
		for i, c := range got {
			if c.Number != i+1 {
				t.Fatalf("iteration %d: chapter %d numbered %d", iter, i, c.Number)
			}
			if c.Summary != fmt.Sprintf("summary of %d", i+1) {
				t.Fatalf("iteration %d: chapter %d summary %q\n%s", iter, i+1, c.Summary, sb.String())
			}
			checkList(t, iter, "events", c.KeyEvents, want[i].events, PlaceholderEvent)
			checkList(t, iter, "characters", c.CharactersInvolved, want[i].chars, PlaceholderCharacter)
			checkList(t, iter, "locations", c.Locations, want[i].locs, PlaceholderLocation)
		}
	}
}

func listSection(header string, items []string, blank func() string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, it := range items {
		sb.WriteString("- ")
		sb.WriteString(it)
		sb.WriteString("\n")
		sb.WriteString(blank())
	}
	return sb.String()
}

func checkList(t *testing.T, iter int, name string, got, want []string, placeholder string) {
	t.Helper()
	if len(want) == 0 {
		want = []string{placeholder}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("iteration %d: %s = %v, want %v", iter, name, got, want)
	}
}

func FuzzParseOutline(f *testing.F) {
	f.Add(canonicalOutline)
	f.Add("Chapter 1:\n- x\nLocations:\n-\n")
	f.Add("## Chapter 9: *odd*\n> Summary: quoted\n")
	f.Fuzz(func(t *testing.T, raw string) {
		got, err := ParseOutline(raw)
		if err != nil {
			if !errors.Is(err, ErrNoChaptersFound) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		for _, c := range got {
			if c.Number <= 0 {
				t.Fatalf("non-positive chapter number %d", c.Number)
			}
			if len(c.KeyEvents) == 0 || len(c.CharactersInvolved) == 0 || len(c.Locations) == 0 {
				t.Fatalf("empty list in %+v", c)
			}
		}
	})
}
