package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/mailq/internal/folder"
	"github.com/nhle/mailq/internal/model"
	"github.com/nhle/mailq/internal/theme"
)

const dateTimeLayout = "2006-01-02 15:04"

// renderMessages writes one line per message using whatever the prefetch
// profile made available, plus the body when showBody is set.
func renderMessages(
	ctx context.Context,
	w io.Writer,
	msgs []*folder.Message,
	items folder.FetchItem,
	showBody bool,
) error {
	for _, m := range msgs {
		var parts []string
		parts = append(parts, theme.SeqStyle.Render(fmt.Sprintf("%d", m.SeqNum())))

		if items.Has(folder.FetchUID) {
			uid, err := m.UID(ctx)
			if err != nil {
				return err
			}
			parts = append(parts, theme.HelpStyle.Render(fmt.Sprintf("uid:%d", uid)))
		}
		if items.Has(folder.FetchEnvelope) {
			date, err := m.Date(ctx)
			if err != nil {
				return err
			}
			from, err := m.From(ctx)
			if err != nil {
				return err
			}
			subject, err := m.Subject(ctx)
			if err != nil {
				return err
			}
			if !date.IsZero() {
				parts = append(parts, theme.HelpStyle.Render(date.Local().Format(dateTimeLayout)))
			}
			parts = append(parts, theme.AddressStyle.Render(from), theme.SubjectStyle.Render(subject))
		}
		if items.Has(folder.FetchSize) {
			size, err := m.Size(ctx)
			if err != nil {
				return err
			}
			parts = append(parts, theme.HelpStyle.Render(fmt.Sprintf("%dB", size)))
		}
		if items.Has(folder.FetchFlags) {
			flags, err := m.Flags(ctx)
			if err != nil {
				return err
			}
			for _, f := range flags {
				parts = append(parts, theme.FlagStyle(string(f)).Render(string(f)))
			}
		}

		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return err
		}

		if showBody {
			body, err := m.BodyText(ctx)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, theme.BodyStyle.Render(strings.TrimSpace(body))); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderSummary(w io.Writer, run model.Run) error {
	line := fmt.Sprintf("%s/%s", run.Account, run.Folder)
	_, err := fmt.Fprintf(w, "%s %s %s\n",
		theme.HeaderStyle.Render(line),
		theme.StrategyStyle(run.Strategy).Render(run.Strategy),
		theme.HelpStyle.Render(fmt.Sprintf("%d matches in %s", run.Matches, run.Duration())),
	)
	return err
}

func renderHistory(w io.Writer, runs []model.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, theme.HelpStyle.Render("no runs recorded"))
		return err
	}
	for _, r := range runs {
		status := theme.StrategyStyle(r.Strategy).Render(r.Strategy)
		if r.Failed() {
			status = theme.ErrorStyle.Render("failed: " + r.Error)
		}
		predicate := r.Predicate
		if predicate == "" {
			predicate = "-"
		}
		line := fmt.Sprintf("%s %s %s %s %s",
			theme.HelpStyle.Render(r.StartedAt.Local().Format(dateTimeLayout)),
			theme.AddressStyle.Render(r.Account+"/"+r.Folder),
			status,
			predicate,
			theme.HelpStyle.Render(fmt.Sprintf("(%d, %s)", r.Matches, r.Duration())),
		)
		if r.SortKeys != "" {
			line += theme.HelpStyle.Render(" sort: " + r.SortKeys)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
