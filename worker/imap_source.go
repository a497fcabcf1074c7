package worker

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"replyloop/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

// InboundMessage is one parsed mailbox message, decoupled from the wire
// protocol so the watcher logic is testable without an IMAP server
type InboundMessage struct {
	SeqNum        uint32
	From          string
	Subject       string
	TextBody      string
	HTMLBody      string
	Date          time.Time
	AutoSubmitted string
	Precedence    string
}

// Content returns the best body for classification: plain text when present,
// otherwise the HTML part
func (m *InboundMessage) Content() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return m.HTMLBody
}

// InboundSession is one open mailbox connection
type InboundSession interface {
	FetchUnseen() ([]InboundMessage, error)
	MarkSeen(seqNum uint32) error
	Close() error
}

// InboundDialer opens mailbox sessions; tests substitute a fake
type InboundDialer interface {
	Dial(provider *models.EmailProvider, password string) (InboundSession, error)
}

type imapDialer struct {
	logger *logrus.Logger
}

func (d imapDialer) Dial(provider *models.EmailProvider, password string) (InboundSession, error) {
	var c *client.Client
	var err error
	addr := fmt.Sprintf("%s:%d", provider.IMAPHost, provider.IMAPPort)

	switch strings.ToUpper(provider.IMAPEncryption) {
	case "SSL", "TLS":
		c, err = client.DialTLS(addr, &tls.Config{
			ServerName: provider.IMAPHost,
		})
	case "STARTTLS":
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(&tls.Config{
				ServerName: provider.IMAPHost,
			})
		}
	default:
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %v", err)
	}

	if err := c.Login(provider.IMAPUsername, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	mailbox := "INBOX"
	if provider.IMAPMailbox != "" {
		mailbox = provider.IMAPMailbox
	}
	if _, err := c.Select(mailbox, false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to select mailbox: %v", err)
	}

	return &imapSession{client: c, logger: d.logger}, nil
}

type imapSession struct {
	client *client.Client
	logger *logrus.Logger
}

func (s *imapSession) FetchUnseen() ([]InboundMessage, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	// BODY.PEEK keeps the \Seen flag untouched until we decide ourselves
	go func() {
		done <- s.client.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	result := s.collectMessages(messages)

	if err := <-done; err != nil {
		return result, fmt.Errorf("error during fetch: %v", err)
	}
	return result, nil
}

// collectMessages parses fetched messages, skipping the ones that cannot be
// parsed. A skipped message stays unseen and comes back on the next poll.
func (s *imapSession) collectMessages(messages <-chan *imap.Message) []InboundMessage {
	var result []InboundMessage
	for msg := range messages {
		parsed, err := parseIMAPMessage(msg)
		if err != nil {
			s.logger.WithError(err).WithField("seq_num", msg.SeqNum).
				Warn("failed to parse inbound message, skipping")
			continue
		}
		result = append(result, *parsed)
	}
	return result
}

func (s *imapSession) MarkSeen(seqNum uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNum)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return s.client.Store(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (s *imapSession) Close() error {
	return s.client.Logout()
}

func parseIMAPMessage(msg *imap.Message) (*InboundMessage, error) {
	parsed := &InboundMessage{SeqNum: msg.SeqNum}

	if msg.Envelope != nil {
		parsed.Subject = msg.Envelope.Subject
		parsed.Date = msg.Envelope.Date
		parsed.From = formatAddressList(msg.Envelope.From)
	}

	// GetBody matches section names by value; the keys in msg.Body are the
	// parser's own pointers
	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return nil, fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return nil, fmt.Errorf("failed to create message reader: %v", err)
	}

	parsed.AutoSubmitted = mr.Header.Get("Auto-Submitted")
	parsed.Precedence = mr.Header.Get("Precedence")

	// Walk the multipart tree, preferring text/plain over text/html
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read next part: %v", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body: %v", err)
			}

			if strings.Contains(contentType, "text/plain") {
				parsed.TextBody = string(b)
			} else if strings.Contains(contentType, "text/html") {
				parsed.HTMLBody = string(b)
			}
		case *mail.AttachmentHeader:
			// Attachments are irrelevant to intent classification
		}
	}

	return parsed, nil
}

func formatAddressList(addrs []*imap.Address) string {
	var result []string
	for _, addr := range addrs {
		if addr.PersonalName != "" {
			result = append(result, fmt.Sprintf("%s <%s>", addr.PersonalName, addr.MailboxName+"@"+addr.HostName))
		} else {
			result = append(result, fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName))
		}
	}
	return strings.Join(result, ", ")
}
