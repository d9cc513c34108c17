package services

import (
	"context"
	"fmt"
	"log/slog"

	pkglogger "github.com/BradenHooton/chatgate/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for lockout notices
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails the account owner when their account is blocked
type SESLockoutNotifier struct {
	client      SESAPI
	fromAddress string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads the default AWS configuration for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESLockoutNotifierWithClient(client SESAPI, fromAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// NotifyLockout sends a plain text notice to email
func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, email, reason string) error {
	textBody := fmt.Sprintf(`Your chat access has been blocked

Access from your account was blocked after repeated incorrect passcode attempts.

Reason: %s

This block is permanent. If this was not you, contact the chat administrator.

This is an automated message. Please do not reply to this email.
`, reason)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your chat access has been blocked"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogLockoutNotifier only logs; used when email delivery is disabled
type LogLockoutNotifier struct {
	logger *slog.Logger
}

func NewLogLockoutNotifier(logger *slog.Logger) *LogLockoutNotifier {
	return &LogLockoutNotifier{logger: logger}
}

func (n *LogLockoutNotifier) NotifyLockout(_ context.Context, email, reason string) error {
	n.logger.Info("lockout notification skipped: email disabled",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("reason", reason))
	return nil
}
