package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []Entry
	}{
		{
			name:  "Simple Q&A",
			input: "Q: What is the capital of France?\nA: Paris",
			want:  []Entry{{Front: "What is the capital of France?", Back: "Paris"}},
		},
		{
			name:  "Simple Q, A, and C",
			input: "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			want:  []Entry{{Front: "What is 1+1?", Back: "2", Context: "Basic arithmetic"}},
		},
		{
			name: "Multiline answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			want: []Entry{{Front: "What are the primary colors?", Back: "Red\nBlue\nYellow"}},
		},
		{
			name: "Two cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			want: []Entry{
				{Front: "First question", Back: "First answer"},
				{Front: "Second question", Back: "Second answer"},
			},
		},
		{
			name: "Separator ends a card",
			input: `Q: One
A: 1
---
Stray prose is ignored.
Q: Two
A: 2`,
			want: []Entry{{Front: "One", Back: "1"}, {Front: "Two", Back: "2"}},
		},
		{
			name:  "No cards, just text",
			input: "This is a file with no questions.",
		},
		{
			name:  "Answer without question",
			input: "A: orphan",
		},
		{
			name:  "Prefixes with no space",
			input: "Q:Question\nA:Answer",
			want:  []Entry{{Front: "Question", Back: "Answer"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEntryCard(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	c := Entry{Front: "What is Go?", Back: "A language.", Context: "Programming"}.Card(now)
	assert.Equal(t, "What is Go?", c.Front)
	assert.Equal(t, "A language.\nProgramming", c.Back)
	assert.Equal(t, now, c.CreatedAt)
	assert.False(t, c.IsScheduled())

	assert.Equal(t, "2", Entry{Front: "1+1", Back: "2"}.Card(now).Back)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nQ: hola\nA: hello\n"), 0o644))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Front: "hola", Back: "hello"}}, got)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
