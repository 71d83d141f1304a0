package mailer

import (
	"context"
	"fmt"
	"html"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Service interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeEmail greets a new account. Accounts that still have to pick a role
// are pointed at role selection.
func WelcomeEmail(toEmail, toName, publicURL string, needsRole bool) Message {
	name := toName
	if name == "" {
		name = "there"
	}

	next := publicURL + "/"
	nextLabel := "Find a dinner"
	if needsRole {
		next = publicURL + "/auth/role-selection"
		nextLabel = "Choose how you'll use Supperclub"
	}

	return Message{
		To:      toEmail,
		ToName:  toName,
		Subject: "Welcome to Supperclub",
		Text:    fmt.Sprintf("Hi %s,\n\nWelcome to Supperclub!\n\n%s: %s", name, nextLabel, next),
		HTML: fmt.Sprintf(`
		<h2>Welcome to Supperclub!</h2>
		<p>Hi %s,</p>
		<p><a href="%s" style="background-color: #B5473A; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">%s</a></p>
	`, html.EscapeString(name), next, html.EscapeString(nextLabel)),
	}
}

func HostOnboardingEmail(toEmail, toName, publicURL string) Message {
	name := toName
	if name == "" {
		name = "there"
	}
	dashboard := publicURL + "/host/dashboard"

	return Message{
		To:      toEmail,
		ToName:  toName,
		Subject: "You're hosting on Supperclub",
		Text:    fmt.Sprintf("Hi %s,\n\nYour host account is ready. List your first dinner from the dashboard: %s", name, dashboard),
		HTML: fmt.Sprintf(`
		<h2>Your host account is ready</h2>
		<p>Hi %s,</p>
		<p>List your first dinner from the host dashboard:</p>
		<p><a href="%s" style="background-color: #B5473A; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Open dashboard</a></p>
	`, html.EscapeString(name), dashboard),
	}
}
