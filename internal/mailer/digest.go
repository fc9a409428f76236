package mailer

import (
	"fmt"
	"strings"
	"text/template"
)

// DigestItem is one conversation with unread messages.
type DigestItem struct {
	ConversationID string
	LastMessage    string
}

var digestTemplate = template.Must(template.New("digest").Parse(`Hi {{.Name}},

You have unread messages in {{len .Items}} conversation{{if ne (len .Items) 1}}s{{end}} on SWOM:
{{range .Items}}
- "{{.LastMessage}}"
  {{$.BaseURL}}/messages/{{.ConversationID}}
{{end}}
Reply soon to keep your swap plans moving.
`))

// RenderDigest builds the unread-messages digest for one recipient.
func RenderDigest(name, baseURL string, items []DigestItem) (string, string, error) {
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	err := digestTemplate.Execute(&b, struct {
		Name    string
		BaseURL string
		Items   []DigestItem
	}{Name: name, BaseURL: strings.TrimRight(baseURL, "/"), Items: items})
	if err != nil {
		return "", "", err
	}
	subject := "You have new messages on SWOM"
	if len(items) > 1 {
		subject = fmt.Sprintf("You have new messages in %d conversations on SWOM", len(items))
	}
	return subject, b.String(), nil
}
