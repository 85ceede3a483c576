package mail

import (
	"context"
	"fmt"

	"github.com/xxxsen/anonmsg/internal/config"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func NewSender(cfg config.MailConfig) (Sender, error) {
	switch cfg.Type {
	case "", "smtp":
		return &smtpSender{cfg: cfg}, nil
	case "log":
		return logSender{}, nil
	default:
		return nil, fmt.Errorf("unsupported mail type: %s", cfg.Type)
	}
}
