package story

import (
	"fmt"
	"strings"
)

// Language selects which outline grammar the planner is asked to emit.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

func (l Language) keywords() Keywords {
	if l == Spanish {
		return SpanishKeywords
	}
	return EnglishKeywords
}

// StoryRequest is the input of GenerateStory.
type StoryRequest struct {
	Idea           string
	TargetLength   int
	Style          string
	CharacterNames []string
}

func buildKickoffPrompt(req StoryRequest) string {
	var sb strings.Builder
	sb.WriteString("Analyse this initial idea for a story before the Planner drafts the chapters.\n")
	fmt.Fprintf(&sb, "Idea: %s\n", req.Idea)
	if req.TargetLength > 0 {
		fmt.Fprintf(&sb, "Length: %d characters\n", req.TargetLength)
	}
	fmt.Fprintf(&sb, "Style: %s\n", req.Style)
	if len(req.CharacterNames) > 0 {
		fmt.Fprintf(&sb, "Characters: %s\n", strings.Join(req.CharacterNames, ", "))
	}
	sb.WriteString("\nPoint out the core conflict and what each character must contribute. Address the Planner.")
	return sb.String()
}

// buildPlannerPrompt 生成大纲提示词，附带必须遵守的章节格式。
func buildPlannerPrompt(req StoryRequest, lang Language) string {
	kw := lang.keywords()
	chapter := titleCase(kw.Chapter)
	avail := "Available characters:"
	if lang == Spanish {
		avail = "Personajes disponibles:"
	}

	var sb strings.Builder
	sb.WriteString("Write a detailed chapter outline for this story, using EXACTLY this format for every chapter:\n\n")
	fmt.Fprintf(&sb, "%s <number>: <descriptive title>\n", chapter)
	fmt.Fprintf(&sb, "%s <concise chapter summary>\n", titleCase(kw.Summary))
	fmt.Fprintf(&sb, "%s\n- <main event>\n- <secondary event>\n", titleCase(kw.KeyEvents))
	fmt.Fprintf(&sb, "%s\n- <main character name>\n- <secondary character name>\n", titleCase(kw.Characters))
	fmt.Fprintf(&sb, "%s\n- <main location>\n- <secondary location>\n\n", titleCase(kw.Locations))
	sb.WriteString("[Repeat the same format for every chapter]\n\n")

	sb.WriteString("Story details:\n")
	fmt.Fprintf(&sb, "Idea: %s\n", req.Idea)
	fmt.Fprintf(&sb, "%s %s\n", avail, strings.Join(req.CharacterNames, ", "))
	if req.TargetLength > 0 {
		fmt.Fprintf(&sb, "Suggested length: %d characters\n", req.TargetLength)
	}
	if req.Style != "" {
		fmt.Fprintf(&sb, "Narrative style: %s\n", req.Style)
	}

	sb.WriteString("\nRULES:\n")
	sb.WriteString("1. Use EXACTLY the format above, with every section in the order shown.\n")
	sb.WriteString("2. List events, characters and locations with dashes (-) only.\n")
	sb.WriteString("3. Include at least 2-3 key events per chapter.\n")
	sb.WriteString("4. Use the exact character names given above.\n")
	sb.WriteString("5. Name concrete locations, not generic ones.\n")
	sb.WriteString("6. Do not add sections or rename them.\n")
	return sb.String()
}

func buildGeographyPrompt(o ChapterOutline) string {
	return fmt.Sprintf("Write detailed descriptions of the locations in this chapter.\nLocations: %s\nChapter context: %s",
		strings.Join(o.Locations, ", "), o.Summary)
}

func buildCharacterPrompt(o ChapterOutline) string {
	return fmt.Sprintf("Describe your character's actions and motivations in this chapter.\nContext: %s\nKey events: %s",
		o.Summary, strings.Join(o.KeyEvents, ", "))
}

func buildNarratorPrompt(o ChapterOutline, geography string, characters []string, style string, feedback []string) string {
	var sb strings.Builder
	sb.WriteString("Write the complete chapter, weaving together every element below.\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", o.Title)
	fmt.Fprintf(&sb, "Summary: %s\n", o.Summary)
	fmt.Fprintf(&sb, "Key events: %s\n", strings.Join(o.KeyEvents, ", "))
	fmt.Fprintf(&sb, "Location descriptions: %s\n", geography)
	fmt.Fprintf(&sb, "Character development: %s\n", strings.Join(characters, " | "))
	fmt.Fprintf(&sb, "Narrative style: %s\n", style)
	if len(feedback) > 0 {
		fmt.Fprintf(&sb, "Reader feedback on the previous chapter: %s\n", strings.Join(feedback, " | "))
	}
	sb.WriteString("\n")
	sb.WriteString("IMPORTANT: begin directly with the narrative prose. No introduction, no explanations, no notes to other agents.")
	return sb.String()
}

func buildArbiterFeedbackPrompt(feedback string, current *Chapter) string {
	var sb strings.Builder
	sb.WriteString("A reader sent feedback on the story so far.\n")
	if current != nil {
		fmt.Fprintf(&sb, "Latest chapter: %d - %s\n", current.Number, current.Title)
	}
	fmt.Fprintf(&sb, "Feedback: %s\n\n", feedback)
	sb.WriteString("Assess the feedback and decide how the next chapters should change. Address the Planner with concrete directions.")
	return sb.String()
}

func buildPlannerFeedbackPrompt(feedback, ruling string, pending []ChapterOutline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reader feedback: %s\n", feedback)
	fmt.Fprintf(&sb, "Arbiter's direction: %s\n", ruling)
	if len(pending) > 0 {
		sb.WriteString("Chapters still to be written:\n")
		for _, o := range pending {
			fmt.Fprintf(&sb, "- %d: %s\n", o.Number, o.Title)
		}
	}
	sb.WriteString("\nExplain how the remaining chapters will be steered to honour this direction.")
	return sb.String()
}

func titleCase(s string) string {
	for i, r := range s {
		return strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}
