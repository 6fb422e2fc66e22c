// Package ses delivers transactional email through Amazon SES v2.
package ses

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/adapters/observability"
	"storefront/internal/domain"
)

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // optional override, e.g. a local SES emulator
}

type Mailer struct {
	client *sesv2.Client
}

// New loads AWS config from the default chain; static keys win when both are set.
func New(ctx context.Context, cfg Config) (*Mailer, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Mailer{client: client}, nil
}

func NewFromClient(c *sesv2.Client) *Mailer { return &Mailer{client: c} }

func (m *Mailer) Send(ctx context.Context, e domain.Email) (string, error) {
	from := e.FromEmail
	if e.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.FromName, e.FromEmail)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{e.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(e.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if e.ReplyTo != "" {
		input.ReplyToAddresses = []string{e.ReplyTo}
	}

	start := time.Now()
	out, err := m.client.SendEmail(ctx, input)
	status := 200
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("ses", "SendEmail", status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("ses: send to %s: %w", observability.RedactEmail(e.To), err)
	}
	id := aws.ToString(out.MessageId)
	log.Debug().Str("to", observability.RedactEmail(e.To)).Str("message_id", id).Msg("ses email sent")
	return id, nil
}

// LogMailer writes messages to the log instead of sending them. Used in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, e domain.Email) (string, error) {
	id := "log-" + uuid.NewString()
	log.Info().
		Str("message_id", id).
		Str("from", e.FromEmail).
		Str("to", e.To).
		Str("reply_to", observability.RedactEmail(e.ReplyTo)).
		Str("subject", e.Subject).
		Msg("email (not sent)")
	return id, nil
}
