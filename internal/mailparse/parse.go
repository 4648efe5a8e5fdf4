// Package mailparse extracts header fields and readable text from RFC 5322
// messages.
package mailparse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/mailq/internal/folder"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Parsed is the decoded form of a message.
type Parsed struct {
	Headers []folder.Header

	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Date    time.Time

	// Text is the text/plain body, or the text/html body stripped of
	// markup if the message has no plain part.
	Text string
	Size int64
}

// Header returns the value of the first field named name.
func (p *Parsed) Header(name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Headers reads the header block of raw, which may be a full message or
// just its header section, and returns the fields in message order.
func Headers(raw []byte) ([]folder.Header, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	mh := message.Header{Header: h}
	var out []folder.Header
	fields := mh.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, folder.Header{Name: fields.Key(), Value: value})
	}
	return out, nil
}

// Parse decodes a complete message.
func Parse(raw []byte) (*Parsed, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	p := &Parsed{Size: int64(len(raw))}

	fields := mr.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		p.Headers = append(p.Headers, folder.Header{Name: fields.Key(), Value: value})
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		p.From = from[0].String()
	}
	p.To = addresses(mr.Header, "To")
	p.Cc = addresses(mr.Header, "Cc")
	p.Bcc = addresses(mr.Header, "Bcc")
	if subject, err := mr.Header.Subject(); err == nil {
		p.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		p.Date = date
	}

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && p.Text == "":
			p.Text = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		case contentType == "" && p.Text == "":
			p.Text = string(body)
		}
	}
	if p.Text == "" {
		p.Text = StripHTML(htmlBody)
	}

	return p, nil
}

// addresses returns every address in the header fields named key, each
// formatted as an RFC 5322 mailbox.
func addresses(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.String()
	}
	return out
}

// StripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
