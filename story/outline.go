package story

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ChapterOutline is the structured plan for one chapter.
type ChapterOutline struct {
	Number             int      `json:"number"`
	Title              string   `json:"title"`
	Summary            string   `json:"summary"`
	KeyEvents          []string `json:"key_events"`
	CharactersInvolved []string `json:"characters_involved"`
	Locations          []string `json:"locations"`
}

// Placeholders substituted for empty outline lists.
const (
	PlaceholderEvent     = "Main plot development"
	PlaceholderCharacter = "Main character"
	PlaceholderLocation  = "Main location"
)

// Keywords is one language's spelling of the outline grammar. All entries are
// lower case; matching is case-insensitive.
type Keywords struct {
	Chapter    string
	Summary    string
	KeyEvents  string
	Characters string
	Locations  string
}

var (
	EnglishKeywords = Keywords{
		Chapter:    "chapter",
		Summary:    "summary:",
		KeyEvents:  "key events:",
		Characters: "characters involved:",
		Locations:  "locations:",
	}
	SpanishKeywords = Keywords{
		Chapter:    "capítulo",
		Summary:    "resumen:",
		KeyEvents:  "eventos clave:",
		Characters: "personajes involucrados:",
		Locations:  "ubicaciones:",
	}
)

// OutlineParser turns a planner reply into chapter outlines.
type OutlineParser struct {
	// Vocabularies lists every accepted keyword set.
	Vocabularies []Keywords
	// Markdown flattens Markdown decoration (headings, emphasis, list
	// markers) before the line grammar is applied.
	Markdown bool
	// Strict turns misplaced lines into *MalformedSectionError instead of
	// skipping them.
	Strict bool
}

func NewOutlineParser() *OutlineParser {
	return &OutlineParser{
		Vocabularies: []Keywords{EnglishKeywords, SpanishKeywords},
		Markdown:     true,
	}
}

// ParseOutline parses raw with the default parser.
func ParseOutline(raw string) ([]ChapterOutline, error) {
	return NewOutlineParser().Parse(raw)
}

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionEvents
	sectionCharacters
	sectionLocations
)

// Parse is deterministic and has no side effects. It returns
// ErrNoChaptersFound when raw holds no chapter header.
func (p *OutlineParser) Parse(raw string) ([]ChapterOutline, error) {
	text := raw
	if p.Markdown {
		text = flattenMarkdown(raw)
	}

	var (
		chapters   []ChapterOutline
		cur        *ChapterOutline
		sec        = sectionNone
		hasSummary bool
	)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		// "1. Chapter 1: ..." arrives here as "- Chapter 1: ..."
		header := line
		if isBullet(header) {
			header = stripBullet(header)
		}
		if number, title, ok := p.chapterHeader(header, strings.ToLower(header)); ok {
			if cur != nil {
				chapters = append(chapters, *cur)
			}
			if number <= 0 && len(chapters) > 0 {
				number = chapters[len(chapters)-1].Number + 1
			}
			if number <= 0 {
				number = len(chapters) + 1
			}
			if title == "" {
				title = fmt.Sprintf("Chapter %d", number)
			}
			cur = &ChapterOutline{Number: number, Title: title}
			sec = sectionNone
			hasSummary = false
			continue
		}

		if next, rest, ok := p.sectionHeader(line, lower); ok {
			if cur == nil {
				if p.Strict {
					return nil, &MalformedSectionError{Line: i + 1, Text: line, Reason: "section before any chapter header"}
				}
				continue
			}
			sec = next
			if sec == sectionSummary {
				if hasSummary {
					if p.Strict {
						return nil, &MalformedSectionError{Line: i + 1, Text: line, Reason: "second summary in one chapter"}
					}
					cur.Summary += " " + rest
				} else {
					cur.Summary = rest
				}
				hasSummary = true
			}
			continue
		}

		if cur == nil {
			if p.Strict && isBullet(line) {
				return nil, &MalformedSectionError{Line: i + 1, Text: line, Reason: "list item before any chapter header"}
			}
			continue
		}

		if isBullet(line) {
			item := stripBullet(line)
			switch sec {
			case sectionEvents:
				cur.KeyEvents = append(cur.KeyEvents, item)
			case sectionCharacters:
				cur.CharactersInvolved = append(cur.CharactersInvolved, item)
			case sectionLocations:
				cur.Locations = append(cur.Locations, item)
			case sectionSummary:
				cur.Summary += " " + item
			default:
				if p.Strict {
					return nil, &MalformedSectionError{Line: i + 1, Text: line, Reason: "list item outside a list section"}
				}
			}
			continue
		}

		switch sec {
		case sectionSummary:
			cur.Summary += " " + line
		case sectionEvents, sectionCharacters, sectionLocations:
			if p.Strict {
				return nil, &MalformedSectionError{Line: i + 1, Text: line, Reason: "text inside a list section is not a list item"}
			}
		}
	}
	if cur != nil {
		chapters = append(chapters, *cur)
	}
	if len(chapters) == 0 {
		return nil, ErrNoChaptersFound
	}

	for i := range chapters {
		c := &chapters[i]
		c.Summary = strings.TrimSpace(c.Summary)
		c.KeyEvents = orPlaceholder(compact(c.KeyEvents), PlaceholderEvent)
		c.CharactersInvolved = orPlaceholder(compact(c.CharactersInvolved), PlaceholderCharacter)
		c.Locations = orPlaceholder(compact(c.Locations), PlaceholderLocation)
	}
	return chapters, nil
}

// chapterHeader recognises "Chapter 3: Title", "Chapter Three: Title" and
// "Chapter IV: Title". A spelled-out or roman number must be a single word
// followed by a colon, so prose such as "Chapters" or "Chapter one begins"
// is not a header.
func (p *OutlineParser) chapterHeader(line, lower string) (int, string, bool) {
	for _, kw := range p.Vocabularies {
		if !strings.HasPrefix(lower, kw.Chapter) {
			continue
		}
		after := lower[len(kw.Chapter):]
		rest := strings.TrimLeft(after, " \t")
		_, title, _ := strings.Cut(line, ":")
		title = strings.TrimSpace(title)

		r := firstRune(rest)
		if r == 0 || unicode.IsDigit(r) || r == ':' || r == '#' {
			head, _, _ := strings.Cut(rest, ":")
			return leadingNumber(head), title, true
		}
		if len(rest) == len(after) {
			// "chapters: ..." glues a letter to the keyword
			continue
		}
		token, _, found := strings.Cut(rest, ":")
		token = strings.TrimSpace(token)
		if !found || strings.ContainsAny(token, " \t") {
			continue
		}
		if n, ok := wordNumber(token); ok {
			return n, title, true
		}
	}
	return 0, "", false
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,

	"uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "trece": 13, "catorce": 14, "quince": 15,
	"dieciséis": 16, "diecisiete": 17, "dieciocho": 18, "diecinueve": 19, "veinte": 20,
	"primero": 1, "segundo": 2, "tercero": 3, "cuarto": 4, "quinto": 5,
	"sexto": 6, "séptimo": 7, "octavo": 8, "noveno": 9, "décimo": 10,
}

// wordNumber reads a lower-case number word or roman numeral.
func wordNumber(token string) (int, bool) {
	if n, ok := numberWords[token]; ok {
		return n, true
	}
	return romanNumber(token)
}

func romanNumber(s string) (int, bool) {
	values := map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000}
	if s == "" || len(s) > 15 {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := values[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) && values[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total, total > 0
}

func (p *OutlineParser) sectionHeader(line, lower string) (section, string, bool) {
	for _, kw := range p.Vocabularies {
		switch {
		case strings.HasPrefix(lower, kw.Summary):
			_, rest, _ := strings.Cut(line, ":")
			return sectionSummary, strings.TrimSpace(rest), true
		case strings.HasPrefix(lower, kw.KeyEvents):
			return sectionEvents, "", true
		case strings.HasPrefix(lower, kw.Characters):
			return sectionCharacters, "", true
		case strings.HasPrefix(lower, kw.Locations):
			return sectionLocations, "", true
		}
	}
	return sectionNone, "", false
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-•"))
}

// leadingNumber returns the first run of digits in s, or 0.
func leadingNumber(s string) int {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func compact(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}

func orPlaceholder(items []string, placeholder string) []string {
	if len(items) == 0 {
		return []string{placeholder}
	}
	return items
}
