// Package app is an example composition root: a console logger shared by
// everyone, a fresh notification service per use, and a user service
// depending on both.
package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-container/framework/config"
)

// Logger writes application messages.
type Logger interface {
	Log(msg string)
}

// ConsoleLogger writes through the framework logger.
type ConsoleLogger struct {
	out zerolog.Logger
}

func NewConsoleLogger(out zerolog.Logger) *ConsoleLogger {
	return &ConsoleLogger{out: out.With().Str("component", "app").Logger()}
}

func (l *ConsoleLogger) Log(msg string) { l.out.Info().Msg(msg) }

// NotificationService delivers a message to a recipient.
type NotificationService interface {
	Notify(to, message string) error
}

// EmailNotificationService sends notifications through the configured mail
// driver. It is transient, so each resolution gets its own Sent counter.
type EmailNotificationService struct {
	logger Logger
	mail   config.MailConfig
	Sent   int
}

func NewEmailNotificationService(logger Logger, mail config.MailConfig) *EmailNotificationService {
	return &EmailNotificationService{logger: logger, mail: mail}
}

func (s *EmailNotificationService) Notify(to, message string) error {
	if !strings.Contains(to, "@") {
		return fmt.Errorf("notify %q: not an email address", to)
	}
	s.Sent++
	s.logger.Log(fmt.Sprintf("mail via %s from %s to %s: %s", s.mail.Driver, s.mail.From, to, message))
	return nil
}

// UserService registers users and welcomes them.
type UserService struct {
	Logger        Logger
	Notifications NotificationService
}

func NewUserService(logger Logger, notifications NotificationService) *UserService {
	return &UserService{Logger: logger, Notifications: notifications}
}

// Register records a user and sends the welcome notification.
func (s *UserService) Register(email string) error {
	s.Logger.Log("registering " + email)
	if err := s.Notifications.Notify(email, "Welcome aboard!"); err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}
	return nil
}
