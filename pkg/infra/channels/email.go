package channels

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/alert"
)

const EmailChannelName = "email"

type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// EmailChannel delivers alerts over SMTP.
type EmailChannel struct {
	cfg EmailConfig
}

func NewEmailChannel(settings map[string]interface{}) (*EmailChannel, error) {
	var conf EmailConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	if conf.Host == "" {
		return nil, errors.New("email host is required")
	}
	if conf.Port == 0 {
		conf.Port = 587
	}
	if conf.From == "" {
		return nil, errors.New("email from address is required")
	}
	if len(conf.To) == 0 {
		return nil, errors.New("email recipients are required")
	}
	return &EmailChannel{cfg: conf}, nil
}

func (c *EmailChannel) Name() string {
	return EmailChannelName
}

func (c *EmailChannel) Send(ctx context.Context, a *alert.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] %s alert: %s", strings.ToUpper(a.Severity), a.Source, a.Type)
	body := strings.Join([]string{
		"From: " + c.cfg.From,
		"To: " + strings.Join(c.cfg.To, ", "),
		"Subject: " + subject,
		"",
		a.Message,
		"",
		"Raised at: " + a.Timestamp.Format("2006-01-02 15:04:05 MST"),
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	return smtp.SendMail(addr, auth, c.cfg.From, c.cfg.To, []byte(body))
}
