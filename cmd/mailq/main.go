// Command mailq runs a single query against an IMAP folder (or a directory
// of .eml files) and prints the matching messages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nhle/mailq/internal/config"
	"github.com/nhle/mailq/internal/credential"
	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/imapfolder"
	"github.com/nhle/mailq/internal/memfolder"
	"github.com/nhle/mailq/internal/model"
	"github.com/nhle/mailq/internal/query"
	"github.com/nhle/mailq/internal/store"
	"github.com/nhle/mailq/internal/ui"
)

// offlineAccount names the account recorded for -dir runs.
const offlineAccount = "local"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("mailq failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "history" {
		hc, err := parseHistoryFlags(args[1:], stderr)
		if err != nil {
			return err
		}
		app, err := loadApp(hc.configPath, stderr)
		if err != nil {
			return err
		}
		return showHistory(ctx, app, hc, stdout)
	}

	qc, err := parseQueryFlags(args, stderr)
	if err != nil {
		return err
	}
	app, err := loadApp(qc.configPath, stderr)
	if err != nil {
		return err
	}
	return runQuery(ctx, app, qc, stdout, time.Now)
}

// loadApp reads the config file and installs the default logger.
func loadApp(path string, stderr io.Writer) (*config.AppConfig, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	app, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: app.LogLevel()}))
	slog.SetDefault(logger)
	return app, nil
}

func runQuery(
	ctx context.Context,
	app *config.AppConfig,
	qc queryConfig,
	stdout io.Writer,
	now func() time.Time,
) error {
	logger := slog.Default()

	configure, err := qc.configure(now())
	if err != nil {
		return err
	}

	prefetchNames := app.Defaults.Prefetch
	if qc.prefetch != "" {
		prefetchNames = strings.Split(qc.prefetch, ",")
	}
	prefetch, err := folder.ParseFetchItems(prefetchNames)
	if err != nil {
		return err
	}
	if qc.showBody {
		prefetch |= folder.FetchBody
	}
	if qc.browse {
		prefetch |= folder.FetchEnvelope | folder.FetchFlags
	}

	folderName := qc.folder
	if folderName == "" {
		folderName = app.Defaults.Folder
	}
	mode := folder.ReadOnly
	if qc.markRead {
		mode = folder.ReadWrite
	}

	b := query.NewSearchBuilder()
	configure(b)
	term, hasTerm := b.Build()
	rec := model.Run{
		Folder:     folderName,
		Strategy:   folder.SelectStrategy(hasTerm, b.SortKeys()).String(),
		SortKeys:   query.FormatSortKeys(b.SortKeys()),
		Prefetch:   prefetch.String(),
		MarkedRead: b.MarkRead(),
		StartedAt:  now(),
	}
	if hasTerm {
		rec.Predicate = term.String()
	}

	// render runs inside the folder scope so lazily loaded attributes are
	// still reachable.
	render := func(f *folder.Folder) error {
		msgs, err := f.Search(ctx, configure)
		if err != nil {
			return err
		}
		rec.Matches = len(msgs)
		rec.DurationMS = now().Sub(rec.StartedAt).Milliseconds()
		if qc.browse {
			status := fmt.Sprintf("%s | %d matches", rec.Strategy, rec.Matches)
			return ui.Browse(ctx, rec.Account+"/"+rec.Folder, status, msgs)
		}
		if err := renderSummary(stdout, rec); err != nil {
			return err
		}
		return renderMessages(ctx, stdout, msgs, prefetch, qc.showBody)
	}

	if qc.dir != "" {
		rec.Account = offlineAccount
		err = runOffline(ctx, qc.dir, mode, prefetch, logger, now, render)
	} else {
		var acct config.AccountConfig
		acct, err = app.Account(qc.account)
		if err == nil {
			rec.Account = acct.Name
			err = runOnline(ctx, acct, folderName, mode, prefetch, qc.savePassword, logger, render)
		}
	}

	if err != nil {
		rec.Error = err.Error()
		rec.DurationMS = now().Sub(rec.StartedAt).Milliseconds()
	}
	if app.History.Enabled {
		if recErr := recordRun(ctx, app.History.Path, rec); recErr != nil {
			logger.Warn("recording run failed", "error", recErr)
		}
	}
	return err
}

func runOffline(
	ctx context.Context,
	dir string,
	mode folder.Mode,
	prefetch folder.FetchItem,
	logger *slog.Logger,
	now func() time.Time,
	fn func(*folder.Folder) error,
) error {
	mb, err := memfolder.LoadDir(dir, memfolder.WithClock(now))
	if err != nil {
		return err
	}
	logger.Debug("loaded offline folder", "dir", dir, "messages", mb.Len())

	f := folder.New(mb.Open(mode), folder.WithLogger(logger), folder.WithPrefetch(prefetch))
	runErr := fn(f)
	if err := f.Close(ctx, false); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func runOnline(
	ctx context.Context,
	acct config.AccountConfig,
	folderName string,
	mode folder.Mode,
	prefetch folder.FetchItem,
	savePassword bool,
	logger *slog.Logger,
	fn func(*folder.Folder) error,
) error {
	creds, err := credential.Open()
	if err != nil {
		return err
	}
	password, err := creds.Password(acct.Name, credential.PromptPassword, savePassword)
	if err != nil {
		return err
	}

	session, err := imapfolder.Dial(ctx, imapfolder.Account{
		Host:               acct.Host,
		Port:               acct.Port,
		Username:           acct.Username,
		Password:           password,
		TLS:                acct.TLS,
		InsecureSkipVerify: acct.InsecureSkipVerify,
	}, imapfolder.WithSessionLogger(logger))
	if err != nil {
		if imapfolder.IsAuthError(err) {
			logger.Error("authentication failed", "account", acct.Name)
		}
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing session", "error", err)
		}
	}()

	return session.Folder(ctx, folderName, mode, fn, folder.WithPrefetch(prefetch))
}

func openHistory(path string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return store.NewSQLiteStore(path)
}

func recordRun(ctx context.Context, path string, rec model.Run) error {
	s, err := openHistory(path)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.RecordRun(ctx, rec)
	return err
}

func showHistory(ctx context.Context, app *config.AppConfig, hc historyConfig, stdout io.Writer) error {
	s, err := openHistory(app.History.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	filter := store.RunFilter{Limit: hc.limit}
	if hc.account != "" {
		filter.Account = &hc.account
	}
	if hc.failed {
		failed := true
		filter.Failed = &failed
	}
	runs, err := s.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	return renderHistory(stdout, runs)
}
