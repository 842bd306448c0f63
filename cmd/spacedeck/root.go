package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conorfennell/spacedeck/internal/config"
	"github.com/conorfennell/spacedeck/internal/library"
	"github.com/conorfennell/spacedeck/internal/storage"
)

// app is the state shared by every command once configuration is loaded.
type app struct {
	in  io.Reader
	out io.Writer

	cfg   *config.Config
	store storage.Store
	lib   *library.Library
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}
	var configFile string

	root := &cobra.Command{
		Use:          "spacedeck",
		Short:        "Spaced-repetition flashcards in the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "path to a YAML config file (default ~/.spacedeck/config.yaml)")
	pf.String("data-dir", "", "directory holding the decks (default ~/.spacedeck)")
	pf.String("store", config.BackendJSON, "storage backend: json or sqlite")
	pf.String("db", "", "SQLite database file (default <data-dir>/spacedeck.db)")
	pf.String("repos-dir", "", "where git note repositories are checked out (default <data-dir>/repos)")
	pf.String("log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		a.decksCmd(),
		a.createCmd(),
		a.deleteCmd(),
		a.resetCmd(),
		a.addCmd(),
		a.cardsCmd(),
		a.removeCmd(),
		a.importCmd(),
		a.studyCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, configFile string) error {
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})))

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	a.store = store

	lib, err := library.Open(store, library.Options{})
	if err != nil {
		return errors.Join(err, store.Close())
	}
	a.lib = lib
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(cfg.DBPath), err)
		}
		slog.Debug("Opening SQLite store", "path", cfg.DBPath)
		return storage.OpenSQLite(cfg.DBPath)
	default:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", cfg.Dir, err)
		}
		slog.Debug("Opening file store", "dir", cfg.Dir)
		return storage.OpenFileStore(cfg.Dir)
	}
}
