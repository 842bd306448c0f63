// Package parser reads flashcards out of Markdown notes.
//
// A card starts with a "Q:" line, its answer with an "A:" line and an
// optional context with a "C:" line. Each block runs until the next prefix,
// a "---" separator line or the end of input, so blocks may span lines.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/conorfennell/spacedeck/internal/domain"
)

const separator = "---"

type field int

const (
	none field = iota
	front
	back
	context
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"A:", back},
	{"C:", context},
}

// Entry is one card as written in a note.
type Entry struct {
	Front   string
	Back    string
	Context string
}

// Card turns the entry into a new card. The context, if any, is shown with
// the answer on its own line.
func (e Entry) Card(now time.Time) *domain.Card {
	b := e.Back
	if e.Context != "" {
		b += "\n" + e.Context
	}
	return domain.NewCard(e.Front, b, now)
}

// ParseFile reads the note at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse extracts every entry with a non-empty question from r.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		current Entry
		block   []string
		reading = none
	)

	flushBlock := func() {
		if reading == none || len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch reading {
		case front:
			current.Front = content
		case back:
			current.Back = content
		case context:
			current.Context = content
		}
		block = nil
	}
	finishEntry := func() {
		flushBlock()
		if strings.TrimSpace(current.Front) != "" {
			current.Front = strings.TrimRight(current.Front, "\n ")
			current.Back = strings.TrimRight(current.Back, "\n ")
			current.Context = strings.TrimRight(current.Context, "\n ")
			entries = append(entries, current)
		}
		current = Entry{}
		reading = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == separator {
			finishEntry()
			continue
		}

		f, rest := matchPrefix(line)
		switch {
		case f == front:
			// A new question always starts a new card.
			finishEntry()
			fallthrough
		case f != none:
			flushBlock()
			reading = f
			block = append(block, rest)
		case reading != none:
			block = append(block, line)
		}
	}
	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return entries, nil
}

func matchPrefix(line string) (field, string) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " ")
		}
	}
	return none, ""
}
