package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/spacedeck/internal/cli"
	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/importer"
	"github.com/conorfennell/spacedeck/internal/library"
	"github.com/conorfennell/spacedeck/internal/session"
	"github.com/conorfennell/spacedeck/internal/sm2"
)

func (a *app) decksCmd() *cobra.Command {
	var search, sortBy string
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List decks with their card counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := library.ParseSortOrder(sortBy)
			if err != nil {
				return err
			}
			decks := a.lib.Search(search)
			if len(decks) == 0 {
				fmt.Fprintln(a.out, "No decks yet. Create one with: spacedeck create <name>")
				return nil
			}
			library.Sort(decks, order)
			return cli.PrintDecks(a.out, decks, time.Now())
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only list decks whose name contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", library.NameAsc.String(),
		"name, name-desc, created, created-desc, studied or studied-desc")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <deck>",
		Short: "Create an empty deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Create(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created deck %q.\n", d.Name())
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <deck>",
		Short: "Delete a deck and all of its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.lib.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted deck %q.\n", args[0])
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <deck>",
		Short: "Forget all progress in a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Get(args[0])
			if err != nil {
				return err
			}
			if err := d.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Reset %d cards in %q.\n", d.Len(), d.Name())
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <deck> <front> <back>",
		Short: "Add a card to a deck",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Get(args[0])
			if err != nil {
				return err
			}
			if _, err := d.AddCard(domain.NewCard(args[1], args[2], time.Now())); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added card to %q (%d cards).\n", d.Name(), d.Len())
			return nil
		},
	}
}

func (a *app) cardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards <deck>",
		Short: "List the cards of a deck in due order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Get(args[0])
			if err != nil {
				return err
			}
			return cli.PrintCards(a.out, d)
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <deck> <index>",
		Short: "Remove the card at an index shown by the cards command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Get(args[0])
			if err != nil {
				return err
			}
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			removed, err := d.DeleteAt(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %q from %q.\n", removed.Front, d.Name())
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <deck> <path|git-url>",
		Short: "Import Q:/A: cards from Markdown notes in a directory or git repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.lib.Get(args[0])
			if err != nil {
				return err
			}
			im := &importer.Importer{
				ReposDir: a.cfg.Sources.ReposDir,
				Progress: cmd.ErrOrStderr(),
			}
			report, err := im.Import(cmd.Context(), d, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Scanned %d files: %d cards found, %d added, %d already in %q.\n",
				report.Files, report.Parsed, report.Added, report.Duplicates, d.Name())
			for _, e := range report.Errors {
				fmt.Fprintf(a.out, "- %s\n", e)
			}
			return nil
		},
	}
}

func (a *app) studyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study [deck...]",
		Short: "Study due cards from some or all decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			decks, err := a.decksNamed(args)
			if err != nil {
				return err
			}
			if len(decks) == 0 {
				fmt.Fprintln(a.out, "No decks to study.")
				return nil
			}

			sched, err := sm2.NewScheduler(&a.cfg.Scheduler)
			if err != nil {
				return err
			}
			s, err := session.New(sched, session.Options{Limit: a.cfg.Session.Limit}, decks...)
			if err != nil {
				return err
			}
			if !s.HasCards() {
				fmt.Fprintln(a.out, "Nothing due. Come back later!")
				return nil
			}

			study := cli.NewStudyCLI(s, sched, cli.StudyOptions{In: a.in, Out: a.out})
			_, err = study.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of cards in the session (default session.limit)")
	return cmd
}

// decksNamed resolves names to decks; no names means every deck.
func (a *app) decksNamed(names []string) ([]*deck.Deck, error) {
	if len(names) == 0 {
		return a.lib.Decks(), nil
	}
	decks := make([]*deck.Deck, 0, len(names))
	for _, name := range names {
		d, err := a.lib.Get(name)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, nil
}
