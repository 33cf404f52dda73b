package emulator

import (
	"fmt"
	"strings"
)

// ActionDefinition binds a logical action label to the engine input events
// dispatched when the action is executed. Immutable after construction.
type ActionDefinition struct {
	Label         string   `json:"label"`
	PressEvents   []string `json:"press_events"`
	ReleaseEvents []string `json:"release_events"`
}

// NewAction validates and builds an ActionDefinition. Event tokens must be
// non-empty strings.
func NewAction(label string, press, release []string) (ActionDefinition, error) {
	if label == "" {
		return ActionDefinition{}, fmt.Errorf("action label cannot be empty")
	}
	for _, ev := range append(append([]string{}, press...), release...) {
		if ev == "" {
			return ActionDefinition{}, fmt.Errorf("action %q: events cannot contain empty strings", label)
		}
	}
	return ActionDefinition{Label: label, PressEvents: press, ReleaseEvents: release}, nil
}

// DefaultActionMap returns the standard Game Boy controller bindings.
func DefaultActionMap() []ActionDefinition {
	return []ActionDefinition{
		{Label: "NOOP"},
		{Label: "UP", PressEvents: []string{"PRESS_ARROW_UP"}, ReleaseEvents: []string{"RELEASE_ARROW_UP"}},
		{Label: "DOWN", PressEvents: []string{"PRESS_ARROW_DOWN"}, ReleaseEvents: []string{"RELEASE_ARROW_DOWN"}},
		{Label: "LEFT", PressEvents: []string{"PRESS_ARROW_LEFT"}, ReleaseEvents: []string{"RELEASE_ARROW_LEFT"}},
		{Label: "RIGHT", PressEvents: []string{"PRESS_ARROW_RIGHT"}, ReleaseEvents: []string{"RELEASE_ARROW_RIGHT"}},
		{Label: "A", PressEvents: []string{"PRESS_BUTTON_A"}, ReleaseEvents: []string{"RELEASE_BUTTON_A"}},
		{Label: "B", PressEvents: []string{"PRESS_BUTTON_B"}, ReleaseEvents: []string{"RELEASE_BUTTON_B"}},
		{Label: "START", PressEvents: []string{"PRESS_BUTTON_START"}, ReleaseEvents: []string{"RELEASE_BUTTON_START"}},
		{Label: "SELECT", PressEvents: []string{"PRESS_BUTTON_SELECT"}, ReleaseEvents: []string{"RELEASE_BUTTON_SELECT"}},
	}
}

// ParseActionOverride decodes an action binding override encoded as
// "EVENT1|EVENT2;EVENT3|EVENT4" where the first group defines press events
// and the second optional group defines release events.
func ParseActionOverride(label, encoded string) (ActionDefinition, error) {
	segments := strings.SplitN(encoded, ";", 2)
	press := splitEvents(segments[0])
	var release []string
	if len(segments) > 1 {
		release = splitEvents(segments[1])
	}
	return NewAction(label, press, release)
}

func splitEvents(s string) []string {
	var events []string
	for _, ev := range strings.Split(s, "|") {
		if ev != "" {
			events = append(events, ev)
		}
	}
	return events
}
