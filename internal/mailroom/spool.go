package mailroom

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// SpoolMailbox reads inbound messages from a filesystem spool directory:
// one file per message, "From:" and "Subject:" header lines, a blank
// line, then the body. Files ending in .html get their body reduced to
// readable, sanitized text. Consumed files move to a processed/
// subdirectory so a message is only ever handed out once.
type SpoolMailbox struct {
	Dir string
}

func NewSpoolMailbox(dir string) (*SpoolMailbox, error) {
	if err := os.MkdirAll(filepath.Join(dir, "processed"), 0755); err != nil {
		return nil, fmt.Errorf("create spool directory: %v", err)
	}
	return &SpoolMailbox{Dir: dir}, nil
}

func (m *SpoolMailbox) Poll(ctx context.Context) ([]Email, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil, fmt.Errorf("read spool directory: %v", err)
	}

	var emails []Email
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return emails, err
		}

		path := filepath.Join(m.Dir, entry.Name())
		email, err := readSpoolFile(path, entry.Name())
		if err != nil {
			// A malformed file must not wedge the whole mailbox.
			continue
		}
		if err := os.Rename(path, filepath.Join(m.Dir, "processed", entry.Name())); err != nil {
			return emails, fmt.Errorf("archive %s: %v", entry.Name(), err)
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func readSpoolFile(path, name string) (Email, error) {
	f, err := os.Open(path)
	if err != nil {
		return Email{}, err
	}
	defer f.Close()

	email := Email{ID: name}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var body strings.Builder
	inBody := false
	for sc.Scan() {
		line := sc.Text()
		if !inBody {
			switch {
			case line == "":
				inBody = true
			case strings.HasPrefix(strings.ToLower(line), "from:"):
				email.From = strings.TrimSpace(line[len("from:"):])
			case strings.HasPrefix(strings.ToLower(line), "subject:"):
				email.Subject = strings.TrimSpace(line[len("subject:"):])
			default:
				// Unknown header, ignore.
			}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	if err := sc.Err(); err != nil {
		return Email{}, err
	}

	email.Body = strings.TrimSpace(body.String())
	if strings.HasSuffix(strings.ToLower(name), ".html") {
		email.Body = cleanHTMLBody(email.Body)
	}
	return email, nil
}

// cleanHTMLBody extracts the readable content of an HTML email body and
// strips any remaining markup before it reaches the model.
func cleanHTMLBody(html string) string {
	base, _ := url.Parse("message://inbound")
	article, err := readability.FromReader(strings.NewReader(html), base)
	text := ""
	if err == nil {
		text = article.TextContent
	}
	if strings.TrimSpace(text) == "" {
		// readability gives up on fragments; sanitizing the raw markup
		// still yields usable text.
		text = html
	}
	p := bluemonday.StrictPolicy()
	return strings.TrimSpace(p.Sanitize(text))
}
