package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"statusboard/internal/adapters/markdown"
	"statusboard/internal/domain/tracker"
)

var announcementTmpl = template.Must(template.New("announcement").Parse(`<h2>{{.Title}}</h2>
<p><em>{{.Type}}</em> &middot; {{.Timestamp}}</p>
{{.Body}}
{{if .Link}}<p><a href="{{.Link}}">View the status page</a></p>{{end}}`))

// Announcer e-mails every new update to a fixed recipient list. Each
// recipient gets a separate message so addresses are not disclosed.
type Announcer struct {
	sender     Sender
	recipients []string
	baseURL    string
}

// NewAnnouncer creates an Announcer. Blank recipients are dropped.
func NewAnnouncer(sender Sender, recipients []string, baseURL string) *Announcer {
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	return &Announcer{sender: sender, recipients: to, baseURL: strings.TrimRight(baseURL, "/")}
}

// Announce sends u to every recipient.
// POST: no-op when there are no recipients
func (a *Announcer) Announce(ctx context.Context, u tracker.Update) error {
	reqs, err := a.Messages(u)
	if err != nil || len(reqs) == 0 {
		return err
	}
	_, err = a.sender.SendBatch(ctx, reqs)
	return err
}

// Messages renders the announcement of u, one message per recipient.
func (a *Announcer) Messages(u tracker.Update) ([]SendRequest, error) {
	if len(a.recipients) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	err := announcementTmpl.Execute(&body, map[string]any{
		"Title":     u.Title,
		"Type":      u.Type,
		"Timestamp": u.Timestamp.UTC().Format("Jan 2, 2006, 15:04 MST"),
		"Body":      markdown.Render(u.Description),
		"Link":      a.link(),
	})
	if err != nil {
		return nil, fmt.Errorf("render announcement: %w", err)
	}

	reqs := make([]SendRequest, len(a.recipients))
	for i, to := range a.recipients {
		reqs[i] = SendRequest{
			To:      []string{to},
			Subject: "Status update: " + u.Title,
			HTML:    body.String(),
		}
	}
	return reqs, nil
}

func (a *Announcer) link() string {
	if a.baseURL == "" {
		return ""
	}
	return a.baseURL + "/"
}
