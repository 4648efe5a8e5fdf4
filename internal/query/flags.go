package query

import "strings"

// Flag is an IMAP message flag: one of the system flags below or a user
// keyword.
type Flag string

const (
	FlagAnswered Flag = `\Answered`
	FlagDeleted  Flag = `\Deleted`
	FlagDraft    Flag = `\Draft`
	FlagFlagged  Flag = `\Flagged`
	FlagRecent   Flag = `\Recent`
	FlagSeen     Flag = `\Seen`
)

var systemFlags = []Flag{
	FlagAnswered, FlagDeleted, FlagDraft, FlagFlagged, FlagRecent, FlagSeen,
}

// IsSystem reports whether f is one of the backslash-prefixed system flags.
func (f Flag) IsSystem() bool {
	for _, sf := range systemFlags {
		if strings.EqualFold(string(sf), string(f)) {
			return true
		}
	}
	return false
}

// ParseFlag accepts a system flag with or without its backslash
// ("seen", `\Seen`) and otherwise returns s as a user keyword.
func ParseFlag(s string) Flag {
	name := strings.TrimPrefix(s, `\`)
	for _, sf := range systemFlags {
		if strings.EqualFold(string(sf)[1:], name) {
			return sf
		}
	}
	return Flag(s)
}

// HasFlag reports whether f is in flags, comparing case-insensitively as
// IMAP does.
func HasFlag(flags []Flag, f Flag) bool {
	for _, x := range flags {
		if strings.EqualFold(string(x), string(f)) {
			return true
		}
	}
	return false
}
