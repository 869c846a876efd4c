package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/campuskit/registry/pkg/logger"
)

// Notification purposes; determine subject and body of the outbound message.
const (
	NotifyRegistrationCode = "registration_code"
	NotifyPasswordReset    = "password_reset"
	NotifyEmailReset       = "email_reset"
)

// Notifier delivers a code or token out-of-band. It is invoked only after
// the owning transaction has committed; failures are logged by the caller
// and never propagated.
type Notifier interface {
	Notify(ctx context.Context, accountID, email, purpose, value string) error
}

// SESNotifier sends notifications using AWS SES
type SESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier creates a new AWS SES notifier
func NewSESNotifier(region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Notify sends the code or token to the account's email address
func (n *SESNotifier) Notify(ctx context.Context, accountID, email, purpose, value string) error {
	subject, body := composeMessage(purpose, value)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("notification sent",
		slog.String("account_id", accountID),
		slog.String("purpose", purpose),
		slog.String("email", pkglogger.SanitizedEmail(email)))

	return nil
}

func composeMessage(purpose, value string) (subject, body string) {
	switch purpose {
	case NotifyRegistrationCode:
		return "Your verification code",
			fmt.Sprintf("Your verification code is %s.\n\nEnter it to complete your registration. The code expires shortly and allows three attempts.", value)
	case NotifyPasswordReset:
		return "Password reset requested",
			fmt.Sprintf("Use this token to reset your password:\n\n%s\n\nIf you did not request a reset, you can ignore this message.", value)
	case NotifyEmailReset:
		return "Confirm your new email address",
			fmt.Sprintf("Use this token to confirm the change of your email address:\n\n%s\n\nIf you did not request this change, you can ignore this message.", value)
	default:
		return "Notification", value
	}
}

// LogNotifier writes notifications to the log instead of sending email.
// Used in development when no SES credentials are configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, accountID, email, purpose, _ string) error {
	n.logger.Info("notification suppressed (email disabled)",
		slog.String("account_id", accountID),
		slog.String("purpose", purpose),
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
