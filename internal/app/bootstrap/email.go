package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/aesthetic-leads/internal/config"
	"github.com/wolfman30/aesthetic-leads/internal/notify"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// LoadAWSConfig builds the SDK config from the region and optional static
// credentials in cfg, falling back to the default credential chain.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loaders...)
}

// BuildEmailSender returns the sender selected by NOTIFY_EMAIL_PROVIDER
// ("sendgrid", "ses", "stub" or "none"). A nil sender disables lead emails.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return nil, nil
	}

	switch cfg.NotifyEmailProvider {
	case "none", "disabled":
		return nil, nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set; lead emails go to the stub sender")
			return notify.NewStubEmailSender(logger), nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		return notify.NewSESSender(client, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return notify.NewStubEmailSender(logger), nil
	}
}
