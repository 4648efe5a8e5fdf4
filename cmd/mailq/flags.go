package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/mailq/internal/query"
)

const dateLayout = "2006-01-02"

type queryConfig struct {
	configPath string
	account    string
	folder     string
	dir        string

	from, to, cc   string
	subject, body  string
	notFrom        string
	headers        headerFlags
	since, before  string
	sentSince      string
	sentBefore     string
	larger         int64
	smaller        int64
	unseen         bool
	flagged        bool
	older, younger string
	modSeq         uint64

	sort         string
	markRead     bool
	prefetch     string
	showBody     bool
	browse       bool
	savePassword bool
}

type historyConfig struct {
	configPath string
	limit      int
	account    string
	failed     bool
}

// headerFlags collects repeated -header name:value flags.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ",") }

func (h *headerFlags) Set(v string) error {
	name, value, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header filter %q must be name:value", v)
	}
	*h = append(*h, strings.TrimSpace(name)+":"+strings.TrimSpace(value))
	return nil
}

func parseQueryFlags(args []string, output io.Writer) (queryConfig, error) {
	var cfg queryConfig
	fs := flag.NewFlagSet("mailq", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.configPath, "config", "", "path to config file (default ~/.config/mailq/config.yaml)")
	fs.StringVar(&cfg.account, "account", "", "account name from the config file")
	fs.StringVar(&cfg.folder, "folder", "", "folder to query (default from config)")
	fs.StringVar(&cfg.dir, "dir", "", "query a directory of .eml files instead of a server")

	fs.StringVar(&cfg.from, "from", "", "sender contains")
	fs.StringVar(&cfg.to, "to", "", "To recipient contains")
	fs.StringVar(&cfg.cc, "cc", "", "Cc recipient contains")
	fs.StringVar(&cfg.subject, "subject", "", "subject contains")
	fs.StringVar(&cfg.body, "body", "", "body contains")
	fs.StringVar(&cfg.notFrom, "not-from", "", "sender does not contain")
	fs.Var(&cfg.headers, "header", "header name:value contains (repeatable)")
	fs.StringVar(&cfg.since, "since", "", "received on or after YYYY-MM-DD")
	fs.StringVar(&cfg.before, "before", "", "received before YYYY-MM-DD")
	fs.StringVar(&cfg.sentSince, "sent-since", "", "sent on or after YYYY-MM-DD")
	fs.StringVar(&cfg.sentBefore, "sent-before", "", "sent before YYYY-MM-DD")
	fs.Int64Var(&cfg.larger, "larger", 0, "size greater than N bytes")
	fs.Int64Var(&cfg.smaller, "smaller", 0, "size less than N bytes")
	fs.BoolVar(&cfg.unseen, "unseen", false, "only messages without \\Seen")
	fs.BoolVar(&cfg.flagged, "flagged", false, "only messages with \\Flagged")
	fs.StringVar(&cfg.older, "older", "", "received longer ago than a duration (e.g. 72h, 7d)")
	fs.StringVar(&cfg.younger, "younger", "", "received within a duration (e.g. 72h, 7d)")
	fs.Uint64Var(&cfg.modSeq, "modseq", 0, "changed at or after mod-sequence N (CONDSTORE)")

	fs.StringVar(&cfg.sort, "sort", "", "comma separated sort keys; prefix with - to reverse")
	fs.BoolVar(&cfg.markRead, "mark-read", false, "mark matching messages \\Seen")
	fs.StringVar(&cfg.prefetch, "prefetch", "", "comma separated fetch items (default from config)")
	fs.BoolVar(&cfg.showBody, "show-body", false, "print message bodies")
	fs.BoolVar(&cfg.browse, "browse", false, "page through the results in a terminal browser")
	fs.BoolVar(&cfg.savePassword, "save-password", false, "store a prompted password in the keyring")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}

func parseHistoryFlags(args []string, output io.Writer) (historyConfig, error) {
	var cfg historyConfig
	fs := flag.NewFlagSet("mailq history", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.configPath, "config", "", "path to config file")
	fs.IntVar(&cfg.limit, "n", 20, "number of runs to show")
	fs.StringVar(&cfg.account, "account", "", "only runs against this account")
	fs.BoolVar(&cfg.failed, "failed", false, "only failed runs")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// configure turns the filter flags into a search builder callback. Every
// value is validated up front so the callback itself cannot fail.
func (c queryConfig) configure(now time.Time) (func(*query.SearchBuilder), error) {
	var steps []func(*query.SearchBuilder)
	add := func(f func(*query.SearchBuilder)) { steps = append(steps, f) }

	text := []struct {
		value string
		apply func(*query.SearchBuilder, string) *query.SearchBuilder
	}{
		{c.from, (*query.SearchBuilder).WithFrom},
		{c.to, (*query.SearchBuilder).WithTo},
		{c.cc, (*query.SearchBuilder).WithCc},
		{c.subject, (*query.SearchBuilder).WithSubject},
		{c.body, (*query.SearchBuilder).WithBody},
	}
	for _, t := range text {
		if t.value == "" {
			continue
		}
		value, apply := t.value, t.apply
		add(func(b *query.SearchBuilder) { apply(b, value) })
	}
	if c.notFrom != "" {
		notFrom := c.notFrom
		add(func(b *query.SearchBuilder) { b.WithNot(query.From(notFrom)) })
	}
	for _, h := range c.headers {
		name, value, _ := strings.Cut(h, ":")
		add(func(b *query.SearchBuilder) { b.WithHeader(name, value) })
	}

	dates := []struct {
		name  string
		value string
		apply func(*query.SearchBuilder, time.Time) *query.SearchBuilder
	}{
		{"since", c.since, (*query.SearchBuilder).WithReceivedOnOrAfter},
		{"before", c.before, (*query.SearchBuilder).WithReceivedBefore},
		{"sent-since", c.sentSince, (*query.SearchBuilder).WithSentOnOrAfter},
		{"sent-before", c.sentBefore, (*query.SearchBuilder).WithSentBefore},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, d.value, now.Location())
		if err != nil {
			return nil, fmt.Errorf("-%s: %w", d.name, err)
		}
		apply := d.apply
		add(func(b *query.SearchBuilder) { apply(b, date) })
	}

	if c.larger < 0 || c.smaller < 0 {
		return nil, errors.New("-larger and -smaller must not be negative")
	}
	if c.larger > 0 {
		larger := c.larger
		add(func(b *query.SearchBuilder) { b.WithSizeIsGreaterThan(larger) })
	}
	if c.smaller > 0 {
		smaller := c.smaller
		add(func(b *query.SearchBuilder) { b.WithSizeIsLessThan(smaller) })
	}

	if c.unseen {
		add(func(b *query.SearchBuilder) { b.WithFlags([]query.Flag{query.FlagSeen}, false) })
	}
	if c.flagged {
		add(func(b *query.SearchBuilder) { b.WithFlags([]query.Flag{query.FlagFlagged}, true) })
	}

	ages := []struct {
		name  string
		value string
		apply func(*query.SearchBuilder, time.Duration) *query.SearchBuilder
	}{
		{"older", c.older, (*query.SearchBuilder).WithOlder},
		{"younger", c.younger, (*query.SearchBuilder).WithYounger},
	}
	for _, a := range ages {
		if a.value == "" {
			continue
		}
		d, err := parseAge(a.value)
		if err != nil {
			return nil, fmt.Errorf("-%s: %w", a.name, err)
		}
		apply := a.apply
		add(func(b *query.SearchBuilder) { apply(b, d) })
	}

	if c.modSeq > 0 {
		modSeq := c.modSeq
		add(func(b *query.SearchBuilder) { b.WithModifiedSince(modSeq) })
	}

	if c.sort != "" {
		sortBy, err := parseSort(c.sort)
		if err != nil {
			return nil, err
		}
		add(func(b *query.SearchBuilder) { b.SortedBy(sortBy) })
	}

	markRead := c.markRead
	return func(b *query.SearchBuilder) {
		for _, step := range steps {
			step(b)
		}
		b.MarkAsRead(markRead)
	}, nil
}

// parseSort parses "from,-arrival" into sort builder calls.
func parseSort(spec string) (func(*query.SortBuilder), error) {
	type entry struct {
		key     query.SortKey
		reverse bool
	}
	var entries []entry
	for _, raw := range strings.Split(spec, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		reverse := strings.HasPrefix(name, "-")
		key, err := query.ParseSortKey(strings.TrimPrefix(name, "-"))
		if err != nil {
			return nil, fmt.Errorf("-sort: %w", err)
		}
		if key == query.SortReverse {
			return nil, fmt.Errorf("-sort: use a leading - instead of %q", name)
		}
		entries = append(entries, entry{key: key, reverse: reverse})
	}
	if len(entries) == 0 {
		return nil, errors.New("-sort: no sort keys given")
	}
	return func(s *query.SortBuilder) {
		for _, e := range entries {
			if e.reverse {
				s.Negate(e.key)
			} else {
				s.Add(e.key)
			}
		}
	}, nil
}

// parseAge accepts time.ParseDuration syntax plus a whole number of days
// such as "7d".
func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}
