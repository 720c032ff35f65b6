package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages. Implementations are expected to be safe for
// concurrent use; the Engine calls Send from short-lived goroutines and
// never retries.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Discard is a Mailer that drops every message. Useful in tests and in
// deployments that handle delivery out of band.
type Discard struct{}

func (Discard) Send(context.Context, Message) error { return nil }

// Logger is a Mailer that writes a one-line summary of each message to the
// standard logger instead of delivering it. Intended for local development.
type Logger struct{}

func (Logger) Send(_ context.Context, msg Message) error {
	log.Printf("credVault: mail to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

var verifyTmpl = template.Must(template.New("verify").Parse(`<p>Hi {{.Name}},</p>
<p>Use the token below to verify your account:</p>
<p><strong>{{.Token}}</strong></p>
<p>If you did not create this account, ignore this message.</p>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>Use the token below to reset your password:</p>
<p><strong>{{.Token}}</strong></p>
<p>This token is single-use. If you did not request a reset, ignore this message.</p>`))

type tokenMail struct {
	Name  string
	Token string
}

// VerifyMessage renders the account verification email.
func VerifyMessage(to, name, token string) (Message, error) {
	var buf bytes.Buffer
	if err := verifyTmpl.Execute(&buf, tokenMail{Name: name, Token: token}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Verify your account",
		Text:    fmt.Sprintf("Hi %s, your verification token is: %s", name, token),
		HTML:    buf.String(),
	}, nil
}

// ResetMessage renders the password reset email.
func ResetMessage(to, name, token string) (Message, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, tokenMail{Name: name, Token: token}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hi %s, your password reset token is: %s", name, token),
		HTML:    buf.String(),
	}, nil
}
