package story

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOutline means the planner reply produced no chapters; the story
	// has to be started again.
	ErrEmptyOutline = errors.New("planner outline contains no chapters")

	// ErrNoChaptersFound is returned by the outline parser when no chapter
	// header line is present.
	ErrNoChaptersFound = errors.New("no chapter headers found")

	ErrStoryNotStarted = errors.New("no story has been generated yet")
)

// GenerationFailure wraps an error from the generation service for one role.
type GenerationFailure struct {
	Role  RoleID
	Cause error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Role, e.Cause)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}

// MalformedSectionError reports an outline line that cannot be placed.
// Only strict parsing returns it.
type MalformedSectionError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedSectionError) Error() string {
	return fmt.Sprintf("outline line %d %q: %s", e.Line, e.Text, e.Reason)
}

// IsGenerationFailure reports whether err came from the generation service.
func IsGenerationFailure(err error) bool {
	var gf *GenerationFailure
	return errors.As(err, &gf)
}
