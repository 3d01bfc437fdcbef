package augment

import (
	"reflect"
	"strings"
	"testing"
)

func TestTaskDirective(t *testing.T) {
	d := taskDirective(7)
	if !strings.Contains(d, "exactly 1 label from the master category list") {
		t.Errorf("directive missing category instruction: %q", d)
	}
	if !strings.Contains(d, "exactly 6 additional keywords") {
		t.Errorf("directive missing keyword count: %q", d)
	}
	if !strings.Contains(d, "all 7") {
		t.Errorf("directive missing total count: %q", d)
	}
	if !strings.Contains(d, "comma-separated") {
		t.Errorf("directive missing output format: %q", d)
	}
}

func TestComposePrompt(t *testing.T) {
	p := composePrompt("base instructions", "some text", 3)
	if !strings.HasPrefix(p, "base instructions") {
		t.Errorf("prompt must start with the combined prompt: %q", p)
	}
	if !strings.HasSuffix(p, "Text:\nsome text") {
		t.Errorf("prompt must end with the input text: %q", p)
	}
	if !strings.Contains(p, taskDirective(3)) {
		t.Errorf("prompt missing task directive")
	}
}

func TestSplitCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain list",
			input: "Construction, Gauteng, pipeline, maintenance",
			want:  []string{"Construction", "Gauteng", "pipeline", "maintenance"},
		},
		{
			name:  "drops empties and whitespace",
			input: " one ,, two ,  , three,",
			want:  []string{"one", "two", "three"},
		},
		{
			name:  "empty reply",
			input: "",
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCandidates(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCandidates(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
