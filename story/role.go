package story

import (
	"fmt"
	"strings"
)

// RoleKind enumerates the narrative functions an agent can fill.
type RoleKind int

const (
	Planner RoleKind = iota + 1
	Narrator
	Geographer
	Character
	Arbiter
)

func (k RoleKind) String() string {
	switch k {
	case Planner:
		return "planner"
	case Narrator:
		return "narrator"
	case Geographer:
		return "geographer"
	case Character:
		return "character"
	case Arbiter:
		return "arbiter"
	default:
		return "unknown"
	}
}

// RoleID identifies one agent within an Orchestrator. Standing roles are keyed
// by kind alone; character roles by kind plus the lower-cased character name.
// The zero value addresses every role.
type RoleID struct {
	Kind RoleKind
	Name string
}

// Everyone is the broadcast recipient.
var Everyone = RoleID{}

func Standing(kind RoleKind) RoleID {
	return RoleID{Kind: kind}
}

// CharacterID derives the identifier of a character role from its name.
func CharacterID(name string) RoleID {
	return RoleID{Kind: Character, Name: strings.ToLower(strings.TrimSpace(name))}
}

func (r RoleID) IsEveryone() bool {
	return r == Everyone
}

func (r RoleID) String() string {
	switch {
	case r.IsEveryone():
		return "all"
	case r.Kind == Character:
		return "character:" + r.Name
	default:
		return r.Kind.String()
	}
}

// MarshalText lets RoleID travel as a plain string in JSON.
func (r RoleID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RoleProfile is the static configuration of one agent.
type RoleProfile struct {
	Kind         RoleKind
	DisplayName  string
	Instructions string
	Marker       string
}

// Label is how the role appears in the chat, e.g. "📚 Narrator".
func (p RoleProfile) Label() string {
	if p.Marker == "" {
		return p.DisplayName
	}
	return p.Marker + " " + p.DisplayName
}

// 常驻角色的系统提示词。
var standingProfiles = map[RoleKind]RoleProfile{
	Planner: {
		Kind:        Planner,
		DisplayName: "Planner",
		Marker:      "🎯",
		Instructions: `You are the Planner 🎯, the architect of rich and layered narratives.
Your goal is a story that keeps the reader immersed from the first chapter to the last.

IMPORTANT:
1. Give every plot element the room it needs.
2. Build meaningful subplots for each character.
3. Tie events and characters together with clear cause and effect.
4. Plan twists that are earned by what came before.
5. Make every chapter carry narrative weight.
6. Involve ALL the characters in a meaningful way.

The suggested length is a minimum guide, not a limit.`,
	},
	Narrator: {
		Kind:        Narrator,
		DisplayName: "Narrator",
		Marker:      "📚",
		Instructions: `You are the Narrator 📚, a master of detailed and immersive storytelling.
You turn plans, places and character notes into finished prose.

IMPORTANT:
1. Describe settings, emotions and actions in detail.
2. Develop each scene fully, without rushing.
3. Include meaningful, well developed dialogue.
4. Treat the suggested length as a minimum guide, not a limit.

When you address another agent, say its name.`,
	},
	Geographer: {
		Kind:        Geographer,
		DisplayName: "Geographer",
		Marker:      "🗺️",
		Instructions: `You are the Geographer 🗺️, the expert on the world of the story.
For each location you describe:

1. Its atmosphere, through all the senses.
2. Its history and cultural meaning.
3. How the place affects the characters.
4. Relevant architectural or natural details.
5. How it connects to other locations.

When you address another agent, say its name.`,
	},
	Arbiter: {
		Kind:        Arbiter,
		DisplayName: "Arbiter",
		Marker:      "⚖️",
		Instructions: `You are the Arbiter ⚖️, guardian of narrative quality and coherence.
You make sure every element of the story gets the development it deserves.

IMPORTANT:
1. Put depth and quality before brevity.
2. Check that every character gets enough attention.
3. Keep the plot coherent across chapters.
4. Weigh reader feedback and decide how the story should adjust.

When you address another agent, say its name.`,
	},
}

// StandingProfile returns the built-in profile for a standing role.
func StandingProfile(kind RoleKind) (RoleProfile, bool) {
	p, ok := standingProfiles[kind]
	return p, ok
}

// CharacterProfile builds the profile for a character role.
func CharacterProfile(name string) RoleProfile {
	name = strings.TrimSpace(name)
	return RoleProfile{
		Kind:        Character,
		DisplayName: "Character_" + name,
		Marker:      "👤",
		Instructions: fmt.Sprintf(`You are the Character agent 👤 for %s.
You know %s's deepest motivations, secrets and aspirations, including those not yet revealed in the story.
Give %s:

1. A rich inner life and believable motives.
2. A detailed personal history.
3. Internal and external conflicts.
4. Complex relationships with the other characters.
5. A meaningful arc.

Speak from %s's point of view. When you address another agent, say its name.`, name, name, name, name),
	}
}
