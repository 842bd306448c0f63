package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
)

const dateLayout = "2006-01-02 15:04"

// PrintDecks writes one row per deck with its card counts.
func PrintDecks(out io.Writer, decks []*deck.Deck, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCARDS\tNEW\tLEARNING\tREVIEW\tDUE\tLAST STUDIED")
	for _, d := range decks {
		stats := d.Stats()
		last := "never"
		if t, ok := d.LastStudiedAt(); ok {
			last = t.Local().Format(dateLayout)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			d.Name(), d.Len(),
			stats[domain.New], stats[domain.Learning], stats[domain.Review],
			d.DueCount(now), last)
	}
	return w.Flush()
}

// PrintCards writes the cards of d in due order. The index column is the
// position accepted by Deck.DeleteAt.
func PrintCards(out io.Writer, d *deck.Deck) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tFRONT\tBACK\tSTATUS\tDUE\tINTERVAL\tEASE")
	for i, c := range d.Cards() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%dd\t%.2f\n",
			i, oneLine(c.Front), oneLine(c.Back), c.Status,
			c.ScheduledAt.Local().Format(dateLayout), c.IntervalDays, c.Easiness)
	}
	return w.Flush()
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " / ")
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}
