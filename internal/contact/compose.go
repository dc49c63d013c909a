package contact

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/tjfontaine/allmovieshub/internal/mail"
)

// DefaultSiteURL is linked from acknowledgement emails when none is set.
const DefaultSiteURL = "https://allmovieshub.com"

// DefaultSiteName is used in email copy when none is set.
const DefaultSiteName = "AllMoviesHub"

// Config is the explicit configuration of the pipeline.
type Config struct {
	// OperatorAddress receives operator notifications. Defaults to
	// SenderAddress.
	OperatorAddress string
	// SenderAddress is the From of every outbound message.
	SenderAddress string
	SiteURL       string
	SiteName      string
}

func (c Config) withDefaults() Config {
	if c.OperatorAddress == "" {
		c.OperatorAddress = c.SenderAddress
	}
	if c.SiteURL == "" {
		c.SiteURL = DefaultSiteURL
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.SiteName == "" {
		c.SiteName = DefaultSiteName
	}
	return c
}

// Notification is one outbound message.
type Notification = mail.Message

// NotificationPair is what a valid submission produces.
type NotificationPair struct {
	Operator Notification
	Ack      Notification
}

var operatorTmpl = template.Must(template.New("operator").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>New contact form submission</h2>
  <table cellpadding="6">
    <tr><td><strong>Name:</strong></td><td>{{.Name}}</td></tr>
    <tr><td><strong>Email:</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
    <tr><td><strong>Subject:</strong></td><td>{{.Subject}}</td></tr>
  </table>
  <h3>Message</h3>
  <p style="white-space: pre-wrap;">{{.Message}}</p>
  <hr>
  <p style="font-size: 12px; color: #888;">Received {{.Received}} via {{.SiteName}}</p>
</body>
</html>
`))

var ackTmpl = template.Must(template.New("ack").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Thank you for reaching out, {{.Name}}!</h2>
  <p>We have received your message and will get back to you as soon as possible.</p>
  <div style="background: #f4f4f4; padding: 12px; border-radius: 4px;">
    <p><strong>Subject:</strong> {{.Subject}}</p>
    <p style="white-space: pre-wrap;"><strong>Message:</strong> {{.Message}}</p>
  </div>
  <p>In the meantime, keep exploring the latest movies on
    <a href="{{.SiteURL}}">{{.SiteName}}</a>.</p>
  <p>Best regards,<br>The {{.SiteName}} Team</p>
</body>
</html>
`))

type templateData struct {
	Submission
	SiteURL  string
	SiteName string
	Received string
}

// Composer renders notification pairs.
type Composer struct {
	cfg Config
	now func() time.Time
}

// NewComposer creates a Composer.
func NewComposer(cfg Config) *Composer {
	return &Composer{cfg: cfg.withDefaults(), now: time.Now}
}

// Compose renders both messages for s. User values are escaped by
// html/template.
func (c *Composer) Compose(s Submission) (NotificationPair, error) {
	data := templateData{
		Submission: s,
		SiteURL:    c.cfg.SiteURL,
		SiteName:   c.cfg.SiteName,
		Received:   c.now().UTC().Format(time.RFC1123),
	}

	var op, ack bytes.Buffer
	if err := operatorTmpl.Execute(&op, data); err != nil {
		return NotificationPair{}, fmt.Errorf("render operator message: %w", err)
	}
	if err := ackTmpl.Execute(&ack, data); err != nil {
		return NotificationPair{}, fmt.Errorf("render acknowledgement: %w", err)
	}

	return NotificationPair{
		Operator: Notification{
			From:     c.cfg.SenderAddress,
			To:       c.cfg.OperatorAddress,
			Subject:  "Contact Form: " + s.Subject,
			HTMLBody: op.String(),
		},
		Ack: Notification{
			From:     c.cfg.SenderAddress,
			To:       s.Email,
			Subject:  "Thank you for contacting " + c.cfg.SiteName,
			HTMLBody: ack.String(),
		},
	}, nil
}
