package mailer

import (
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/botify-mailer/botify/internal/apperr"
)

// Provider fixes one SMTP endpoint profile. ImplicitTLS selects TLS-on-
// connect (port 465 style) versus STARTTLS on a plain connection.
type Provider struct {
	Name        string
	Host        string
	Port        int
	ImplicitTLS bool
}

var (
	ProviderGmail   = Provider{Name: "gmail", Host: "smtp.gmail.com", Port: 465, ImplicitTLS: true}
	ProviderOutlook = Provider{Name: "outlook", Host: "smtp-mail.outlook.com", Port: 587, ImplicitTLS: false}
	ProviderYahoo   = Provider{Name: "yahoo", Host: "smtp.mail.yahoo.com", Port: 465, ImplicitTLS: true}
)

type route struct {
	keywords []string
	provider Provider
}

// routes is an ordered rule table over the sender domain; first match wins
// and anything unmatched falls back to the gmail profile. This is a
// heuristic over the shared mailbox's domain, not an MX lookup.
var routes = []route{
	{keywords: []string{"outlook", "hotmail", "live"}, provider: ProviderOutlook},
	{keywords: []string{"yahoo"}, provider: ProviderYahoo},
}

// SelectProvider picks the SMTP profile for a sender address.
func SelectProvider(sender string) Provider {
	domain := ""
	if at := strings.LastIndex(sender, "@"); at >= 0 {
		domain = strings.ToLower(sender[at+1:])
	}
	for _, r := range routes {
		for _, kw := range r.keywords {
			if strings.Contains(domain, kw) {
				return r.provider
			}
		}
	}
	return ProviderGmail
}

// Attachment is one optional file attached to every message in a sweep.
type Attachment struct {
	Name string
	Path string
}

// Message is one outbound email.
type Message struct {
	From       string
	FromName   string
	To         string
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Transport sends messages through one provider profile bound to a sender
// and credential.
type Transport interface {
	Verify() error
	Send(*Message) error
}

type smtpTransport struct {
	dialer *gomail.Dialer
}

// NewTransport builds an SMTP transport for the given sender, selecting the
// provider profile from the sender's domain.
func NewTransport(sender, credential string) Transport {
	p := SelectProvider(sender)
	d := gomail.NewDialer(p.Host, p.Port, sender, credential)
	d.SSL = p.ImplicitTLS
	return &smtpTransport{dialer: d}
}

// Verify dials and authenticates without sending anything.
func (t *smtpTransport) Verify() error {
	sc, err := t.dialer.Dial()
	if err != nil {
		return &apperr.TransportError{Err: err}
	}
	return sc.Close()
}

func (t *smtpTransport) Send(msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if msg.Attachment != nil {
		m.Attach(msg.Attachment.Path, gomail.Rename(msg.Attachment.Name))
	}
	if err := t.dialer.DialAndSend(m); err != nil {
		return &apperr.TransportError{Err: err}
	}
	return nil
}
