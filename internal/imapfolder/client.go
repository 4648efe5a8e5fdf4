package imapfolder

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailq/internal/folder"
)

// AuthError indicates that the server rejected the account credentials.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Account holds the connection settings of one IMAP account.
type Account struct {
	Host     string
	Port     string
	Username string
	Password string

	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS                bool
	InsecureSkipVerify bool
}

func (a Account) Addr() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// Session is an authenticated IMAP connection.
type Session struct {
	client *imapclient.Client
	logger *slog.Logger
	now    func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger *slog.Logger
	debug  io.Writer
	now    func() time.Time
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = logger }
}

// WithDebugWriter copies the raw protocol exchange to w.
func WithDebugWriter(w io.Writer) SessionOption {
	return func(o *sessionOptions) { o.debug = w }
}

// WithClock sets the time source used to resolve age terms.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.now = now }
}

// Dial connects to the account's server and authenticates. The caller is
// responsible for calling Close on the returned session.
func Dial(ctx context.Context, acct Account, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := acct.Addr()
	clientOpts := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         acct.Host,
			InsecureSkipVerify: acct.InsecureSkipVerify,
		},
		DebugWriter: o.debug,
	}

	var client *imapclient.Client
	var err error

	if acct.TLS {
		client, err = imapclient.DialTLS(addr, clientOpts)
	} else {
		client, err = imapclient.DialStartTLS(addr, clientOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(acct.Username, acct.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, &AuthError{
			Username: acct.Username,
			Message:  fmt.Sprintf("login to %s failed: %v", addr, err),
		}
	}

	o.logger.Debug("imap session established", "addr", addr, "user", acct.Username)
	return NewSession(client, opts...), nil
}

// NewSession wraps an already authenticated client.
func NewSession(client *imapclient.Client, opts ...SessionOption) *Session {
	o := sessionOptions{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{client: client, logger: o.logger, now: o.now}
}

// Open selects mailbox (EXAMINE when mode is folder.ReadOnly) and returns
// a handle bound to it. Only one handle per session may be open at a time.
func (s *Session) Open(ctx context.Context, mailbox string, mode folder.Mode) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.Select(mailbox, &imap.SelectOptions{
		ReadOnly: mode == folder.ReadOnly,
	}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	s.logger.Debug("folder opened", "mailbox", mailbox, "mode", mode, "messages", data.NumMessages)
	return &Handle{
		client:      s.client,
		mailbox:     mailbox,
		mode:        mode,
		numMessages: data.NumMessages,
		numRecent:   data.NumRecent,
		now:         s.now,
	}, nil
}

// ErrNoSuchFolder is returned by FolderType for a mailbox the server does
// not list.
var ErrNoSuchFolder = errors.New("no such folder")

// FolderType lists mailbox and reports what it can hold.
func (s *Session) FolderType(ctx context.Context, mailbox string) (folder.Type, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := s.client.List("", mailbox, nil).Collect()
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", mailbox, err)
	}
	for _, d := range data {
		if d.Mailbox == mailbox || (strings.EqualFold(mailbox, "INBOX") && strings.EqualFold(d.Mailbox, "INBOX")) {
			return folderType(d.Attrs), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoSuchFolder, mailbox)
}

// folderType maps LIST attributes: \Noselect mailboxes hold only other
// folders and \Noinferiors mailboxes only messages.
func folderType(attrs []imap.MailboxAttr) folder.Type {
	var noSelect, noInferiors bool
	for _, a := range attrs {
		switch {
		case strings.EqualFold(string(a), string(imap.MailboxAttrNoSelect)):
			noSelect = true
		case strings.EqualFold(string(a), string(imap.MailboxAttrNoInferiors)):
			noInferiors = true
		}
	}
	switch {
	case noSelect:
		return folder.HoldsFolders
	case noInferiors:
		return folder.HoldsMessages
	default:
		return folder.HoldsBoth
	}
}

// Folder opens mailbox, runs fn against it and closes it again without
// expunging, whatever fn returns.
func (s *Session) Folder(
	ctx context.Context,
	mailbox string,
	mode folder.Mode,
	fn func(*folder.Folder) error,
	opts ...folder.Option,
) error {
	h, err := s.Open(ctx, mailbox, mode)
	if err != nil {
		return err
	}
	opts = append([]folder.Option{folder.WithLogger(s.logger)}, opts...)
	runErr := fn(folder.New(h, opts...))
	if err := h.Close(ctx, false); err != nil && runErr == nil {
		return fmt.Errorf("closing %s: %w", mailbox, err)
	}
	return runErr
}

// Close logs out, which also ends the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}
