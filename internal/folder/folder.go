package folder

import (
	"context"
	"log/slog"

	"github.com/nhle/mailq/internal/query"
)

// Strategy is the remote operation a query resolves to.
type Strategy int

const (
	// StrategyNone issues no remote call and yields no messages.
	StrategyNone Strategy = iota
	StrategySearch
	StrategySortedSearch
	StrategySort
)

func (s Strategy) String() string {
	switch s {
	case StrategySearch:
		return "search"
	case StrategySortedSearch:
		return "sorted-search"
	case StrategySort:
		return "sort"
	default:
		return "none"
	}
}

// SelectStrategy picks the remote operation for a predicate (hasTerm) and
// sort order. Without a predicate nothing is filtered: an absent
// predicate never means "match everything" unless an order was asked for.
func SelectStrategy(hasTerm bool, keys []query.SortKey) Strategy {
	switch {
	case hasTerm && len(keys) == 0:
		return StrategySearch
	case hasTerm:
		return StrategySortedSearch
	case len(keys) > 0:
		return StrategySort
	default:
		return StrategyNone
	}
}

// RunQuery configures a search with configure and executes it against h,
// pre-fetching prefetch for the matches. See Folder.Search.
func RunQuery(
	ctx context.Context,
	h Handle,
	prefetch FetchItem,
	configure func(*query.SearchBuilder),
) ([]*Message, error) {
	b := query.NewSearchBuilder()
	configure(b)
	return execute(ctx, h, prefetch, slog.Default(), b)
}

func execute(
	ctx context.Context,
	h Handle,
	prefetch FetchItem,
	logger *slog.Logger,
	b *query.SearchBuilder,
) ([]*Message, error) {
	term, hasTerm := b.Build()
	keys := b.SortKeys()
	strategy := SelectStrategy(hasTerm, keys)

	var (
		raw []*RawMessage
		err error
	)
	switch strategy {
	case StrategySearch:
		raw, err = h.Search(ctx, term)
	case StrategySortedSearch:
		raw, err = h.SearchSorted(ctx, term, keys)
	case StrategySort:
		raw, err = h.SortOnly(ctx, keys)
	default:
		logger.Debug("query has neither terms nor sort keys")
		return []*Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		if err := h.Fetch(ctx, raw, prefetch); err != nil {
			return nil, err
		}
	}

	msgs := make([]*Message, len(raw))
	for i, r := range raw {
		msgs[i] = newMessage(r)
	}

	if b.MarkRead() && len(raw) > 0 {
		if err := h.SetFlags(ctx, raw, []query.Flag{query.FlagSeen}, true); err != nil {
			return nil, err
		}
	}

	logger.Debug("query executed",
		"strategy", strategy,
		"matches", len(msgs),
		"mark_read", b.MarkRead(),
	)
	return msgs, nil
}

// Folder is an open folder: a Handle plus the pre-fetch profile applied to
// every query result.
type Folder struct {
	handle   Handle
	prefetch FetchItem
	logger   *slog.Logger
}

// Option configures a Folder.
type Option func(*Folder)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Folder) { f.logger = logger }
}

func WithPrefetch(items FetchItem) Option {
	return func(f *Folder) { f.prefetch = items }
}

// New wraps h. The default pre-fetch profile is empty.
func New(h Handle, opts ...Option) *Folder {
	f := &Folder{handle: h, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PreFetchBy replaces the pre-fetch profile with items.
func (f *Folder) PreFetchBy(items ...FetchItem) {
	var profile FetchItem
	for _, it := range items {
		profile |= it
	}
	f.prefetch = profile
}

func (f *Folder) Prefetch() FetchItem {
	return f.prefetch
}

// Search runs the query configured by configure. Depending on whether
// terms and sort keys were given it issues a SEARCH, a SORT with search
// criteria, a SORT over the whole folder, or nothing at all. Matches are
// pre-fetched, then marked \Seen in one batch if requested, and returned
// in server order. Handle errors are returned unchanged and no partial
// result is produced.
func (f *Folder) Search(ctx context.Context, configure func(*query.SearchBuilder)) ([]*Message, error) {
	b := query.NewSearchBuilder()
	configure(b)
	return execute(ctx, f.handle, f.prefetch, f.logger, b)
}

// SortedBy returns every message of the folder in the order configured by
// configure.
func (f *Folder) SortedBy(ctx context.Context, configure func(*query.SortBuilder)) ([]*Message, error) {
	b := query.NewSearchBuilder().SortedBy(configure)
	return execute(ctx, f.handle, f.prefetch, f.logger, b)
}

// Message returns the message with sequence number n. It reports false if
// there is no such message.
func (f *Folder) Message(ctx context.Context, n uint32) (*Message, bool, error) {
	if n == 0 {
		return nil, false, nil
	}
	st, err := f.handle.Status(ctx)
	if err != nil {
		return nil, false, err
	}
	if n > st.Messages {
		return nil, false, nil
	}
	msgs, err := f.MessagesIn(ctx, n, n, false)
	if err != nil || len(msgs) == 0 {
		return nil, false, err
	}
	return msgs[0], true, nil
}

// MessagesIn returns the messages with sequence numbers in [from, to],
// pre-fetched when prefetch is true.
func (f *Folder) MessagesIn(ctx context.Context, from, to uint32, prefetch bool) ([]*Message, error) {
	raw, err := f.handle.Messages(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if prefetch && len(raw) > 0 {
		if err := f.handle.Fetch(ctx, raw, f.prefetch); err != nil {
			return nil, err
		}
	}
	msgs := make([]*Message, len(raw))
	for i, r := range raw {
		msgs[i] = newMessage(r)
	}
	return msgs, nil
}

func (f *Folder) MessageCount(ctx context.Context) (uint32, error) {
	st, err := f.handle.Status(ctx)
	return st.Messages, err
}

func (f *Folder) UnreadMessageCount(ctx context.Context) (uint32, error) {
	st, err := f.handle.Status(ctx)
	return st.Unseen, err
}

// NewMessageCount is the number of messages with the \Recent flag.
func (f *Folder) NewMessageCount(ctx context.Context) (uint32, error) {
	st, err := f.handle.Status(ctx)
	return st.Recent, err
}

func (f *Folder) HasNewMessages(ctx context.Context) (bool, error) {
	n, err := f.NewMessageCount(ctx)
	return n > 0, err
}

// Close ends the folder scope. Messages returned earlier keep the
// attributes already cached; anything else fails with ErrMessageDetached.
func (f *Folder) Close(ctx context.Context, expunge bool) error {
	return f.handle.Close(ctx, expunge)
}
