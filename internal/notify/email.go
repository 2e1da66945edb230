package notify

import (
	"context"

	"github.com/maxaizer/tender-monitor/internal/config"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type EmailNotifier struct {
	sender           mailSender
	from             string
	defaultRecipient string
}

func NewEmailNotifier(cfg config.SMTPConfig) (*EmailNotifier, error) {
	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp client")
	}

	return NewEmailNotifierWithSender(client, cfg.From, cfg.DefaultRecipient), nil
}

func NewEmailNotifierWithSender(sender mailSender, from, defaultRecipient string) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from, defaultRecipient: defaultRecipient}
}

func (n *EmailNotifier) Channel() entities.NotificationChannel {
	return entities.ChannelEmail
}

// Recipients falls back to the configured default address for profiles without their own.
func (n *EmailNotifier) Recipients(profile entities.MonitoringProfile) []string {
	if len(profile.Recipients) > 0 {
		return profile.Recipients
	}
	if n.defaultRecipient != "" {
		return []string{n.defaultRecipient}
	}
	return nil
}

func (n *EmailNotifier) Notify(ctx context.Context, digest Digest) error {
	msg, err := n.buildMessage(digest)
	if err != nil {
		return err
	}
	if err = n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to send digest email")
	}
	return nil
}

func (n *EmailNotifier) buildMessage(digest Digest) (*mail.Msg, error) {
	recipients := n.Recipients(digest.Profile)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	text, err := renderText(digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render text digest")
	}
	html, err := renderHTML(digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render html digest")
	}

	msg := mail.NewMsg()
	if err = msg.From(n.from); err != nil {
		return nil, errors.Wrapf(err, "invalid sender %q", n.from)
	}
	if err = msg.To(recipients...); err != nil {
		return nil, errors.Wrap(err, "invalid recipient")
	}
	msg.Subject(digest.Subject())
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	return msg, nil
}
