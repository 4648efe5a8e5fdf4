package query

import (
	"time"

	"github.com/emersion/go-message/mail"
)

// And returns the conjunction of a and b. Chains stay binary: And(And(a, b), c)
// is never flattened.
func And(a, b Term) Term {
	return AndTerm{Left: a, Right: b}
}

// Or returns the disjunction of a and b.
func Or(a, b Term) Term {
	return OrTerm{Left: a, Right: b}
}

// Not negates t. Negating a NotTerm unwraps it instead of nesting.
func Not(t Term) Term {
	if n, ok := t.(NotTerm); ok {
		return n.Term
	}
	return NotTerm{Term: t}
}

// Range is an inclusive [Lo, Hi] interval. Lo > Hi is allowed and yields a
// predicate that cannot match.
type Range[T any] struct {
	Lo, Hi T
}

// DateAttribute builds comparisons against one of the message dates.
type DateAttribute struct {
	attr Attribute
}

var (
	ReceivedDate = DateAttribute{attr: AttrReceivedDate}
	SentDate     = DateAttribute{attr: AttrSentDate}
)

func (a DateAttribute) Compare(op Comparator, date time.Time) Term {
	return CompareTerm{Attr: a.attr, Op: op, Date: date}
}

func (a DateAttribute) Eq(date time.Time) Term { return a.Compare(Equal, date) }
func (a DateAttribute) Ne(date time.Time) Term { return a.Compare(NotEqual, date) }
func (a DateAttribute) Lt(date time.Time) Term { return a.Compare(Less, date) }
func (a DateAttribute) Le(date time.Time) Term { return a.Compare(LessOrEqual, date) }
func (a DateAttribute) Gt(date time.Time) Term { return a.Compare(Greater, date) }
func (a DateAttribute) Ge(date time.Time) Term { return a.Compare(GreaterOrEqual, date) }

// Between matches dates in [lo, hi].
func (a DateAttribute) Between(lo, hi time.Time) Term {
	return And(a.Ge(lo), a.Le(hi))
}

func (a DateAttribute) In(r Range[time.Time]) Term {
	return a.Between(r.Lo, r.Hi)
}

// SizeAttribute builds comparisons against the message size in octets.
type SizeAttribute struct{}

var Size SizeAttribute

func (SizeAttribute) Compare(op Comparator, size int64) Term {
	return CompareTerm{Attr: AttrSize, Op: op, Size: size}
}

func (s SizeAttribute) Eq(size int64) Term { return s.Compare(Equal, size) }
func (s SizeAttribute) Ne(size int64) Term { return s.Compare(NotEqual, size) }
func (s SizeAttribute) Lt(size int64) Term { return s.Compare(Less, size) }
func (s SizeAttribute) Le(size int64) Term { return s.Compare(LessOrEqual, size) }
func (s SizeAttribute) Gt(size int64) Term { return s.Compare(Greater, size) }
func (s SizeAttribute) Ge(size int64) Term { return s.Compare(GreaterOrEqual, size) }

// Between matches sizes in [smallest, largest].
func (s SizeAttribute) Between(smallest, largest int64) Term {
	return And(s.Ge(smallest), s.Le(largest))
}

func (s SizeAttribute) In(r Range[int64]) Term {
	return s.Between(r.Lo, r.Hi)
}

func From(pattern string) Term { return TextTerm{Field: FieldFrom, Pattern: pattern} }
func To(pattern string) Term   { return TextTerm{Field: FieldTo, Pattern: pattern} }
func Cc(pattern string) Term   { return TextTerm{Field: FieldCc, Pattern: pattern} }
func Bcc(pattern string) Term  { return TextTerm{Field: FieldBcc, Pattern: pattern} }

func FromAddress(addr mail.Address) Term { return AddressTerm{Field: FieldFrom, Address: addr} }
func ToAddress(addr mail.Address) Term   { return AddressTerm{Field: FieldTo, Address: addr} }
func CcAddress(addr mail.Address) Term   { return AddressTerm{Field: FieldCc, Address: addr} }
func BccAddress(addr mail.Address) Term  { return AddressTerm{Field: FieldBcc, Address: addr} }

// Recipient matches pattern in the given recipient field (FieldTo, FieldCc
// or FieldBcc).
func Recipient(field TextField, pattern string) Term {
	return TextTerm{Field: field, Pattern: pattern}
}

func RecipientAddress(field TextField, addr mail.Address) Term {
	return AddressTerm{Field: field, Address: addr}
}

func Subject(pattern string) Term { return TextTerm{Field: FieldSubject, Pattern: pattern} }
func Body(pattern string) Term    { return TextTerm{Field: FieldBody, Pattern: pattern} }

func Header(name, pattern string) Term {
	return TextTerm{Field: FieldHeader, Header: name, Pattern: pattern}
}

func MessageID(pattern string) Term { return MessageIDTerm{Pattern: pattern} }
func MessageNumber(n uint32) Term   { return MessageNumberTerm{Num: n} }

// Flags matches messages with every flag in flags set (set == true) or
// clear (set == false).
func Flags(flags []Flag, set bool) Term {
	return FlagTerm{Flags: append([]Flag(nil), flags...), Set: set}
}

func ModifiedSince(modSeq uint64) Term { return ModSeqTerm{ModSeq: modSeq} }

// Older matches messages whose internal date is more than interval ago.
func Older(interval time.Duration) Term {
	return AgeTerm{Op: AgeOlder, Seconds: int64(interval / time.Second)}
}

// Younger matches messages whose internal date is within interval of now.
func Younger(interval time.Duration) Term {
	return AgeTerm{Op: AgeYounger, Seconds: int64(interval / time.Second)}
}

func Received(op Comparator, date time.Time) Term { return ReceivedDate.Compare(op, date) }
func Sent(op Comparator, date time.Time) Term     { return SentDate.Compare(op, date) }
func SizeCompare(op Comparator, size int64) Term  { return Size.Compare(op, size) }
