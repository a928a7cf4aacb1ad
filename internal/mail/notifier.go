package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SendStatus is the outcome of a best-effort send.
type SendStatus int

const (
	// StatusSent means the relay accepted the message.
	StatusSent SendStatus = iota
	// StatusFailed means building or relaying the message failed; the error was logged.
	StatusFailed
	// StatusSkipped means no relay credentials are configured.
	StatusSkipped
)

func (s SendStatus) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("SendStatus(%d)", int(s))
	}
}

// Notifier delivers OTP codes. It never returns an error: callers decide what
// a non-sent status means for the user.
type Notifier interface {
	SendOTP(ctx context.Context, to, otp string) SendStatus
}

// SMTPConfig describes the outbound relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPNotifier sends OTP mails through an implicit-TLS SMTP relay.
type SMTPNotifier struct {
	from   string
	client sender
	log    *zap.SugaredLogger
}

// NewSMTPNotifier builds a notifier. Without credentials every send is skipped.
func NewSMTPNotifier(cfg SMTPConfig, log *zap.SugaredLogger) (*SMTPNotifier, error) {
	n := &SMTPNotifier{from: cfg.Username, log: log}
	if cfg.Username == "" || cfg.Password == "" {
		log.Warn("smtp credentials not configured, OTP mails will be skipped")
		return n, nil
	}

	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	n.client = client
	return n, nil
}

// SendOTP mails the code to the registrant.
func (n *SMTPNotifier) SendOTP(ctx context.Context, to, otp string) SendStatus {
	if n.client == nil {
		n.log.Infow("otp mail skipped", "to", to)
		return StatusSkipped
	}

	msg, err := buildOTPMessage(n.from, to, otp)
	if err != nil {
		n.log.Warnw("otp mail not built", "to", to, "error", err)
		return StatusFailed
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		n.log.Warnw("otp mail failed", "to", to, "error", err)
		return StatusFailed
	}

	n.log.Infow("otp mail sent", "to", to)
	return StatusSent
}

func buildOTPMessage(from, to, otp string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject("Your OTP Code")
	msg.SetBodyString(gomail.TypeTextPlain, "Your OTP is: "+otp)
	return msg, nil
}
