// Package importer fills decks from Markdown notes kept in a local directory
// or a git repository.
package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
	"github.com/conorfennell/spacedeck/internal/gitsource"
	"github.com/conorfennell/spacedeck/internal/knol"
	"github.com/conorfennell/spacedeck/internal/parser"
)

// Report summarises one import.
type Report struct {
	Files      int
	Parsed     int
	Added      int
	Duplicates int
	// Errors holds per-file problems that did not stop the import.
	Errors []error
}

// Importer reads notes into decks.
type Importer struct {
	// ReposDir is where git sources are checked out.
	ReposDir string
	// Progress receives git transfer output. Nil discards it.
	Progress io.Writer
	// Now is the clock used for new cards. Nil means time.Now.
	Now func() time.Time
}

// Import parses every Markdown file under source and adds the cards the deck
// does not already hold, judged by content hash, with a single save. source
// is a file, a directory or a git URL; git sources are cloned or pulled into
// ReposDir first.
func (im *Importer) Import(ctx context.Context, d *deck.Deck, source string) (Report, error) {
	var report Report

	root := source
	if IsGitURL(source) {
		local, err := LocalPath(im.ReposDir, source)
		if err != nil {
			return report, err
		}
		if err := gitsource.Sync(ctx, source, local, im.Progress); err != nil {
			return report, err
		}
		root = local
	}

	now := time.Now
	if im.Now != nil {
		now = im.Now
	}
	known := make(map[string]bool, d.Len())
	for _, c := range d.Cards() {
		known[knol.CardHash(c)] = true
	}

	var added []*domain.Card
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		report.Files++
		entries, err := parser.ParseFile(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}
		for _, e := range entries {
			report.Parsed++
			card := e.Card(now())
			hash := knol.CardHash(card)
			if known[hash] {
				report.Duplicates++
				continue
			}
			known[hash] = true
			added = append(added, card)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to read notes in %s: %w", root, err)
	}

	if len(added) > 0 {
		if err := d.AddCards(added...); err != nil {
			return report, err
		}
	}
	report.Added = len(added)

	slog.Info("Import complete",
		"deck", d.Name(),
		"source", source,
		"files", report.Files,
		"parsed_cards", report.Parsed,
		"added", report.Added,
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return report, nil
}

// IsGitURL reports whether source names a remote repository rather than a
// local path: an http(s), ssh or git URL, or scp-like user@host:path.
func IsGitURL(source string) bool {
	if u, err := url.Parse(source); err == nil {
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return u.Host != ""
		}
	}
	at := strings.Index(source, "@")
	colon := strings.Index(source, ":")
	slash := strings.Index(source, "/")
	return at > 0 && colon > at && (slash < 0 || colon < slash)
}

// LocalPath maps a repository URL to a checkout directory under baseDir,
// laid out as <host>/<path> without the .git suffix.
func LocalPath(baseDir, repoURL string) (string, error) {
	var host, repoPath string
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		host, repoPath = u.Hostname(), u.Path
	} else if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
		host, repoPath, ok = strings.Cut(rest, ":")
		if !ok {
			return "", fmt.Errorf("could not parse git URL: %s", repoURL)
		}
	} else {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	repoPath = strings.Trim(strings.TrimSuffix(repoPath, ".git"), "/")
	if host == "" || repoPath == "" || strings.Contains(repoPath, "..") {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return filepath.Join(baseDir, host, filepath.FromSlash(repoPath)), nil
}

