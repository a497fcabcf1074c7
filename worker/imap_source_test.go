package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fetchedMessage builds an imap.Message the way the client's response parser
// does, so the body section lookup is exercised against real keys
func fetchedMessage(t *testing.T, raw string) *imap.Message {
	t.Helper()

	msg := &imap.Message{SeqNum: 1}
	require.NoError(t, msg.Parse([]interface{}{
		imap.RawString("BODY[]"), bytes.NewBufferString(raw),
	}))
	return msg
}

func TestParseFetchedMessageReadsBody(t *testing.T) {
	raw := "From: Jane Roe <jane@acme.com>\r\n" +
		"Subject: Re: Checking in\r\n" +
		"Auto-Submitted: auto-replied\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Sounds interesting, send me pricing.\r\n"

	msg := fetchedMessage(t, raw)
	msg.Envelope = &imap.Envelope{
		Subject: "Re: Checking in",
		Date:    time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		From: []*imap.Address{{
			PersonalName: "Jane Roe",
			MailboxName:  "jane",
			HostName:     "acme.com",
		}},
	}

	parsed, err := parseIMAPMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe <jane@acme.com>", parsed.From)
	assert.Equal(t, "Re: Checking in", parsed.Subject)
	assert.Equal(t, "auto-replied", parsed.AutoSubmitted)
	assert.Equal(t, "Sounds interesting, send me pricing.", strings.TrimSpace(parsed.TextBody))
}

func TestParseFetchedMessagePrefersPlainText(t *testing.T) {
	raw := "From: jane@acme.com\r\n" +
		"Content-Type: multipart/alternative; boundary=sep\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--sep--\r\n"

	parsed, err := parseIMAPMessage(fetchedMessage(t, raw))
	require.NoError(t, err)
	assert.Equal(t, "plain version", strings.TrimSpace(parsed.TextBody))
	assert.Equal(t, "<p>html version</p>", strings.TrimSpace(parsed.HTMLBody))
	assert.Equal(t, parsed.TextBody, parsed.Content())
}

func TestParseFetchedMessageWithoutBodyErrors(t *testing.T) {
	_, err := parseIMAPMessage(&imap.Message{SeqNum: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body not found")
}

func TestCollectMessagesLogsAndSkipsParseFailures(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	session := &imapSession{logger: logger}

	good := fetchedMessage(t, "From: jane@acme.com\r\nContent-Type: text/plain\r\n\r\nhello\r\n")
	bad := &imap.Message{SeqNum: 9}

	ch := make(chan *imap.Message, 2)
	ch <- bad
	ch <- good
	close(ch)

	result := session.collectMessages(ch)
	require.Len(t, result, 1)
	assert.Equal(t, "hello", strings.TrimSpace(result[0].TextBody))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
	assert.Equal(t, uint32(9), hook.Entries[0].Data["seq_num"])
}
