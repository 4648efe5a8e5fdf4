package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// Term is a node of a search predicate tree. The set of implementations is
// closed: only the types declared in this package satisfy it.
//
// Terms are values. Combinators return new terms and never modify their
// operands.
type Term interface {
	fmt.Stringer
	isTerm()
}

// Attribute identifies the message attribute a CompareTerm compares.
type Attribute int

const (
	AttrReceivedDate Attribute = iota
	AttrSentDate
	AttrSize
)

func (a Attribute) String() string {
	switch a {
	case AttrReceivedDate:
		return "received"
	case AttrSentDate:
		return "sent"
	case AttrSize:
		return "size"
	default:
		return "attr(" + strconv.Itoa(int(a)) + ")"
	}
}

// Comparator is the relation used by a CompareTerm.
type Comparator int

const (
	Equal Comparator = iota
	NotEqual
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
)

func (c Comparator) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterOrEqual:
		return ">="
	default:
		return "op(" + strconv.Itoa(int(c)) + ")"
	}
}

// TextField identifies the part of a message a TextTerm matches against.
type TextField int

const (
	FieldFrom TextField = iota
	FieldTo
	FieldCc
	FieldBcc
	FieldSubject
	FieldBody
	FieldHeader
)

func (f TextField) String() string {
	switch f {
	case FieldFrom:
		return "from"
	case FieldTo:
		return "to"
	case FieldCc:
		return "cc"
	case FieldBcc:
		return "bcc"
	case FieldSubject:
		return "subject"
	case FieldBody:
		return "body"
	case FieldHeader:
		return "header"
	default:
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
}

// HeaderName returns the message header a field corresponds to, or "" for
// FieldBody and FieldHeader.
func (f TextField) HeaderName() string {
	switch f {
	case FieldFrom:
		return "From"
	case FieldTo:
		return "To"
	case FieldCc:
		return "Cc"
	case FieldBcc:
		return "Bcc"
	case FieldSubject:
		return "Subject"
	default:
		return ""
	}
}

// AgeOp selects the direction of an AgeTerm.
type AgeOp int

const (
	AgeOlder AgeOp = iota
	AgeYounger
)

func (o AgeOp) String() string {
	if o == AgeYounger {
		return "younger"
	}
	return "older"
}

// CompareTerm compares a date or size attribute against a value. Date is
// used for AttrReceivedDate and AttrSentDate, Size for AttrSize.
type CompareTerm struct {
	Attr Attribute
	Op   Comparator
	Date time.Time
	Size int64
}

// TextTerm matches a substring in an address field, the subject, the body
// or an arbitrary header (Header names it when Field is FieldHeader).
type TextTerm struct {
	Field   TextField
	Header  string
	Pattern string
}

// AddressTerm matches a structured address in From, To, Cc or Bcc.
type AddressTerm struct {
	Field   TextField
	Address mail.Address
}

// FlagTerm matches messages whose flags are all set (or all clear).
type FlagTerm struct {
	Flags []Flag
	Set   bool
}

type MessageIDTerm struct {
	Pattern string
}

type MessageNumberTerm struct {
	Num uint32
}

// ModSeqTerm matches messages whose mod-sequence is at least ModSeq.
type ModSeqTerm struct {
	ModSeq uint64
}

// AgeTerm matches messages by internal date relative to now.
type AgeTerm struct {
	Op      AgeOp
	Seconds int64
}

type AndTerm struct {
	Left, Right Term
}

type OrTerm struct {
	Left, Right Term
}

type NotTerm struct {
	Term Term
}

func (CompareTerm) isTerm()       {}
func (TextTerm) isTerm()          {}
func (AddressTerm) isTerm()       {}
func (FlagTerm) isTerm()          {}
func (MessageIDTerm) isTerm()     {}
func (MessageNumberTerm) isTerm() {}
func (ModSeqTerm) isTerm()        {}
func (AgeTerm) isTerm()           {}
func (AndTerm) isTerm()           {}
func (OrTerm) isTerm()            {}
func (NotTerm) isTerm()           {}

const dateLayout = "2006-01-02"

func (t CompareTerm) String() string {
	if t.Attr == AttrSize {
		return fmt.Sprintf("size%s%d", t.Op, t.Size)
	}
	return fmt.Sprintf("%s%s%s", t.Attr, t.Op, t.Date.Format(dateLayout))
}

func (t TextTerm) String() string {
	if t.Field == FieldHeader {
		return fmt.Sprintf("header[%s]~%q", t.Header, t.Pattern)
	}
	return fmt.Sprintf("%s~%q", t.Field, t.Pattern)
}

func (t AddressTerm) String() string {
	return fmt.Sprintf("%s=%q", t.Field, t.Address.Address)
}

func (t FlagTerm) String() string {
	names := make([]string, len(t.Flags))
	for i, f := range t.Flags {
		names[i] = string(f)
	}
	state := "set"
	if !t.Set {
		state = "unset"
	}
	return fmt.Sprintf("flags[%s]=%s", strings.Join(names, " "), state)
}

func (t MessageIDTerm) String() string     { return fmt.Sprintf("message-id~%q", t.Pattern) }
func (t MessageNumberTerm) String() string { return fmt.Sprintf("msgnum=%d", t.Num) }
func (t ModSeqTerm) String() string        { return fmt.Sprintf("modseq>=%d", t.ModSeq) }
func (t AgeTerm) String() string           { return fmt.Sprintf("%s(%ds)", t.Op, t.Seconds) }
func (t AndTerm) String() string           { return fmt.Sprintf("and(%s, %s)", t.Left, t.Right) }
func (t OrTerm) String() string            { return fmt.Sprintf("or(%s, %s)", t.Left, t.Right) }
func (t NotTerm) String() string           { return fmt.Sprintf("not(%s)", t.Term) }

// Leaves returns the number of non-combinator nodes in t.
func Leaves(t Term) int {
	switch t := t.(type) {
	case AndTerm:
		return Leaves(t.Left) + Leaves(t.Right)
	case OrTerm:
		return Leaves(t.Left) + Leaves(t.Right)
	case NotTerm:
		return Leaves(t.Term)
	case nil:
		return 0
	default:
		return 1
	}
}
