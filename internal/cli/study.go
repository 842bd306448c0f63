// Package cli holds the interactive terminal front end of spacedeck.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/fatih/color"

	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/session"
)

var errQuit = errors.New("quit")

// Previewer predicts the due time of each rating without changing the card.
type Previewer interface {
	Preview(c *domain.Card, now time.Time) map[domain.Rating]time.Time
}

// StudyOptions configures a StudyCLI.
type StudyOptions struct {
	In  io.Reader
	Out io.Writer
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
	// PersistAttempts bounds the saves tried when the session ends. Zero
	// means 3.
	PersistAttempts uint
	// PersistDelay is the initial back-off between save attempts.
	PersistDelay time.Duration
}

// Summary describes a finished study run.
type Summary struct {
	Reviewed  int
	Remaining int
}

// StudyCLI shows the cards of a session one at a time and feeds the typed
// ratings back into it.
type StudyCLI struct {
	session *session.Session
	preview Previewer
	in      *bufio.Reader
	out     io.Writer
	now     func() time.Time

	persistAttempts uint
	persistDelay    time.Duration

	bold  *color.Color
	faint *color.Color
	green *color.Color
	red   *color.Color
}

// NewStudyCLI prepares a study loop over s.
func NewStudyCLI(s *session.Session, preview Previewer, opts StudyOptions) *StudyCLI {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PersistAttempts == 0 {
		opts.PersistAttempts = 3
	}
	return &StudyCLI{
		session:         s,
		preview:         preview,
		in:              bufio.NewReader(opts.In),
		out:             opts.Out,
		now:             opts.Now,
		persistAttempts: opts.PersistAttempts,
		persistDelay:    opts.PersistDelay,
		bold:            color.New(color.Bold),
		faint:           color.New(color.Faint),
		green:           color.New(color.FgGreen),
		red:             color.New(color.FgRed),
	}
}

// Run studies until the session runs out of cards, the user quits, input
// ends or ctx is cancelled. Ratings given so far are always persisted.
func (cli *StudyCLI) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	var loopErr error
	for cli.session.HasCards() {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := cli.studyCard(); err != nil {
			if !errors.Is(err, errQuit) {
				loopErr = err
			}
			break
		}
		summary.Reviewed++
	}
	summary.Remaining = cli.session.Len()

	now := cli.now()
	for _, d := range cli.session.Touched() {
		d.MarkStudied(now)
	}
	if err := cli.persist(); err != nil {
		return summary, errors.Join(loopErr, err)
	}

	if summary.Remaining == 0 {
		_, _ = cli.green.Fprintf(cli.out, "All done! Reviewed %d cards.\n", summary.Reviewed)
	} else {
		fmt.Fprintf(cli.out, "Reviewed %d cards, %d left for later.\n", summary.Reviewed, summary.Remaining)
	}
	return summary, loopErr
}

func (cli *StudyCLI) studyCard() error {
	card := cli.session.Current()
	if card == nil {
		return errQuit
	}

	stats := cli.session.Stats()
	_, _ = cli.faint.Fprintf(cli.out, "\n%d new, %d learning, %d review\n",
		stats[domain.New], stats[domain.Learning], stats[domain.Review])
	_, _ = cli.bold.Fprintln(cli.out, card.Front)
	fmt.Fprint(cli.out, "[Enter] show answer, [q] quit: ")
	line, err := cli.readLine()
	if err != nil {
		return err
	}
	if isQuit(line) {
		return errQuit
	}

	fmt.Fprintln(cli.out, strings.Repeat("-", 20))
	fmt.Fprintln(cli.out, card.Back)

	now := cli.now()
	due := cli.preview.Preview(card, now)
	var options []string
	for i, r := range domain.Ratings {
		options = append(options, fmt.Sprintf("[%d] %s (%s)", i+1, r, FormatInterval(due[r].Sub(now))))
	}
	prompt := strings.Join(options, "  ") + ": "

	for {
		fmt.Fprint(cli.out, prompt)
		line, err := cli.readLine()
		if err != nil {
			return err
		}
		if isQuit(line) {
			return errQuit
		}
		r, err := domain.ParseRating(line)
		if err != nil {
			_, _ = cli.red.Fprintf(cli.out, "Unknown rating %q.\n", line)
			continue
		}
		return cli.session.Rate(r)
	}
}

// readLine returns the next trimmed input line. End of input quits.
func (cli *StudyCLI) readLine() (string, error) {
	line, err := cli.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
			return "", errQuit
		}
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (cli *StudyCLI) persist() error {
	if cli.session.Modified() == 0 {
		return nil
	}
	err := retry.Do(
		cli.session.Persist,
		retry.Attempts(cli.persistAttempts),
		retry.Delay(cli.persistDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Saving study progress failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to save study progress: %w", err)
	}
	return nil
}

func isQuit(line string) bool {
	return strings.EqualFold(line, "q") || strings.EqualFold(line, "quit")
}

// FormatInterval renders a time until due compactly: 5m, 3h, 12d.
func FormatInterval(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Round(time.Minute)/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Round(time.Hour)/time.Hour))
	}
	return fmt.Sprintf("%dd", int(d.Round(24*time.Hour)/(24*time.Hour)))
}
