// Package classify maps the structural marker of the latest rendered
// assistant turn onto a small set of turn kinds.
package classify

import "strings"

// ResponseType is the rendering kind of the target's latest turn.
type ResponseType int

const (
	Unknown ResponseType = iota
	Message
	Buttons
	Reset
)

func (r ResponseType) String() string {
	switch r {
	case Message:
		return "MESSAGE"
	case Buttons:
		return "BUTTONS"
	case Reset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// markers holds the class names the chat widget puts on its last element.
var markers = map[string]ResponseType{
	"bot singlenogroup": Message,
	"container":         Buttons,
	"state":             Reset,
}

// Classify returns the type for a marker. Anything not in the table is Unknown.
func Classify(marker string) ResponseType {
	if t, ok := markers[strings.TrimSpace(marker)]; ok {
		return t
	}
	return Unknown
}
