// Package transcript renders a channel's message history into a
// self-contained HTML document. The export is attached to the closing log
// entry and sent to the ticket creator, so it has no external assets.
package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Message is one rendered message.
type Message struct {
	// AuthorID and AuthorName identify the author.
	AuthorID   string
	AuthorName string

	// Bot is whether the author is an automated account.
	Bot bool

	// Content is the plain message content.
	Content string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// Attachments are attachment URLs.
	Attachments []string
}

// Fetcher pages through a channel's messages, newest first. A page starts
// before the given message ID; an empty ID starts at the channel's tail.
type Fetcher interface {
	ChannelMessages(channelID string, limit int, beforeID string) ([]*Message, string, error)
}

const pageSize = 100

// Export fetches the full history of a channel and renders it. It returns
// the suggested file name and the document bytes.
func Export(f Fetcher, channelID string, channelName string) (string, []byte, error) {
	var history []*Message

	beforeID := ""
	for {
		page, lastID, err := f.ChannelMessages(channelID, pageSize, beforeID)
		if err != nil {
			return "", nil, fmt.Errorf("error fetching channel history: %w", err)
		}
		history = append(history, page...)
		if len(page) < pageSize || lastID == "" {
			break
		}
		beforeID = lastID
	}

	// Pages arrive newest first; the document reads oldest first.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	doc, err := render(channelName, history)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("transcript-%s.html", channelName), doc, nil
}

var tmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.ChannelName}}</title>
<style>
body { background: #36393f; color: #dcddde; font-family: sans-serif; margin: 0; padding: 16px; }
h1 { color: #ffffff; font-size: 18px; border-bottom: 1px solid #4f545c; padding-bottom: 8px; }
.msg { padding: 6px 0; }
.author { color: #ffffff; font-weight: bold; }
.bot { background: #5865f2; color: #ffffff; font-size: 10px; border-radius: 3px; padding: 1px 4px; margin-left: 4px; }
.time { color: #72767d; font-size: 11px; margin-left: 8px; }
.content { white-space: pre-wrap; }
.attachment a { color: #00a8fc; }
</style>
</head>
<body>
<h1>#{{.ChannelName}}</h1>
{{range .Messages}}<div class="msg">
<span class="author">{{.AuthorName}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="time">{{.Timestamp.UTC.Format "2006-01-02 15:04:05"}} UTC</span>
<div class="content">{{.Content}}</div>
{{range .Attachments}}<div class="attachment"><a href="{{.}}">{{.}}</a></div>
{{end}}</div>
{{end}}</body>
</html>
`))

func render(channelName string, history []*Message) ([]byte, error) {
	data := struct {
		ChannelName string
		Messages    []*Message
	}{
		ChannelName: channelName,
		Messages:    history,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("error rendering transcript: %w", err)
	}
	return buf.Bytes(), nil
}
