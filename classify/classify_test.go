package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   ResponseType
	}{
		{"message", "bot singlenogroup", Message},
		{"buttons", "container", Buttons},
		{"reset", "state", Reset},
		{"surrounding space", "  state\n", Reset},
		{"empty", "", Unknown},
		{"user bubble", "user singlenogroup", Unknown},
		{"partial", "bot", Unknown},
		{"case differs", "Container", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.marker))
		})
	}
}

func TestResponseTypeString(t *testing.T) {
	assert.Equal(t, "MESSAGE", Message.String())
	assert.Equal(t, "BUTTONS", Buttons.String())
	assert.Equal(t, "RESET", Reset.String())
	assert.Equal(t, "UNKNOWN", ResponseType(42).String())
}
