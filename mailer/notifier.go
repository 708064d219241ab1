package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	goerrors "github.com/goliatone/go-errors"
	"github.com/kanbanhq/kanban"
)

// Notifier renders the application's outbound mail and pushes it through a
// kanban.Mailer. Subjects and bodies are localized per recipient; German is
// the default, English the fallback set.
type Notifier struct {
	sender kanban.Mailer
	// baseURL is the public URL of the frontend the links point at.
	baseURL string
}

// NewNotifier returns a notifier that sends through the given mailer.
func NewNotifier(sender kanban.Mailer, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: baseURL}
}

var _ kanban.NotificationMailer = (*Notifier)(nil)

type localeStrings struct {
	ActivationSubject string
	ActivationBody    string
	ResetSubject      string
	ResetBody         string
	ReminderSubject   string
	ReminderIntro     string
}

var locales = map[string]localeStrings{
	"DE": {
		ActivationSubject: "Kanban: Konto aktivieren",
		ActivationBody:    "Hallo {{.Displayname}},<br><br>bitte aktiviere dein Konto über diesen Link:<br><a href=\"{{.Link}}\">{{.Link}}</a><br><br>Der Link ist bis {{.Expiry}} gültig.",
		ResetSubject:      "Kanban: Passwort zurücksetzen",
		ResetBody:         "Hallo {{.Displayname}},<br><br>du kannst dein Passwort über diesen Link zurücksetzen:<br><a href=\"{{.Link}}\">{{.Link}}</a><br><br>Der Link ist bis {{.Expiry}} gültig.",
		ReminderSubject:   "Kanban: Heute fällige Aufgaben",
		ReminderIntro:     "Hallo {{.Displayname}},<br><br>folgende Aufgaben sind heute fällig:",
	},
	"EN": {
		ActivationSubject: "Kanban: activate your account",
		ActivationBody:    "Hello {{.Displayname}},<br><br>please activate your account using this link:<br><a href=\"{{.Link}}\">{{.Link}}</a><br><br>The link is valid until {{.Expiry}}.",
		ResetSubject:      "Kanban: reset your password",
		ResetBody:         "Hello {{.Displayname}},<br><br>you can reset your password using this link:<br><a href=\"{{.Link}}\">{{.Link}}</a><br><br>The link is valid until {{.Expiry}}.",
		ReminderSubject:   "Kanban: tasks due today",
		ReminderIntro:     "Hello {{.Displayname}},<br><br>the following tasks are due today:",
	},
}

func localeFor(user *kanban.User) localeStrings {
	if l, ok := locales[user.Language]; ok {
		return l
	}
	return locales[kanban.DefaultLanguage]
}

// SendActivation mails the account activation link.
func (n *Notifier) SendActivation(ctx context.Context, user *kanban.User, token string) error {
	locale := localeFor(user)
	link := fmt.Sprintf("%s/activate/%s?token=%s", n.baseURL, user.Username, token)

	expiry := ""
	if user.ActivationToken != nil && user.ActivationToken.ExpiresAt != nil {
		expiry = user.ActivationToken.ExpiresAt.Format("02.01.2006 15:04")
	}

	body, err := render(locale.ActivationBody, map[string]any{
		"Displayname": user.Displayname,
		"Link":        link,
		"Expiry":      expiry,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, user.Email, locale.ActivationSubject, body)
}

// SendPasswordReset mails the password reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, user *kanban.User, token string) error {
	locale := localeFor(user)
	link := fmt.Sprintf("%s/resetPassword/%s?token=%s", n.baseURL, user.Username, token)

	expiry := ""
	if user.PasswordResetToken != nil && user.PasswordResetToken.ExpiresAt != nil {
		expiry = user.PasswordResetToken.ExpiresAt.Format("02.01.2006 15:04")
	}

	body, err := render(locale.ResetBody, map[string]any{
		"Displayname": user.Displayname,
		"Link":        link,
		"Expiry":      expiry,
	})
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, user.Email, locale.ResetSubject, body)
}

// SendTaskReminder mails one digest of the tasks due today.
func (n *Notifier) SendTaskReminder(ctx context.Context, user *kanban.User, tasks []*kanban.Task) error {
	locale := localeFor(user)

	intro, err := render(locale.ReminderIntro, map[string]any{
		"Displayname": user.Displayname,
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(intro)
	buf.WriteString("<ul>")
	for _, task := range tasks {
		buf.WriteString("<li>")
		buf.WriteString(template.HTMLEscapeString(task.Title))
		buf.WriteString("</li>")
	}
	buf.WriteString("</ul>")

	return n.sender.Send(ctx, user.Email, locale.ReminderSubject, buf.String())
}

func render(tpl string, data map[string]any) (string, error) {
	t, err := template.New("mail").Parse(tpl)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse mail template")
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template")
	}
	return buf.String(), nil
}
