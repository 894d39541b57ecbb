package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/dollarport/edu-site/internal/config"
	"github.com/dollarport/edu-site/internal/leads"
	"github.com/dollarport/edu-site/internal/notify"
	"github.com/dollarport/edu-site/pkg/logging"
)

// BuildEmailSender picks the mail transport named by MAIL_PROVIDER. It returns
// nil when that provider lacks credentials, which the email notifier reports
// as mail_credentials_missing.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil || !cfg.MailConfigured() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.MailProvider {
	case appconfig.MailProviderSendGrid:
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.MailFromName,
		}, logger)
	case appconfig.MailProviderSES:
		if awsCfg == nil {
			logger.Warn("ses mail provider selected without aws config")
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.MailFromName,
		}, logger)
	case appconfig.MailProviderStub:
		return notify.NewStubEmailSender(logger)
	default:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.MailSMTPHost,
			Port:     cfg.MailSMTPPort,
			Username: cfg.MailUser,
			Password: cfg.MailPass,
			FromName: cfg.MailFromName,
		}, logger)
	}
}

// BuildNotifiers assembles the lead notifiers. Email and spreadsheet are always
// present so their outcome reaches the caller; the queue joins only when
// LEAD_QUEUE_URL is set.
func BuildNotifiers(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) []leads.Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}

	notifiers := []leads.Notifier{
		notify.NewEmailNotifier(BuildEmailSender(cfg, awsCfg, logger), cfg.HREmail, logger),
		notify.NewSheetsNotifier(cfg.SheetsWebhook, nil, logger),
	}
	if cfg.LeadQueueURL != "" {
		if awsCfg == nil {
			logger.Warn("lead queue configured without aws config", "queue_url", cfg.LeadQueueURL)
		} else {
			notifiers = append(notifiers, notify.NewQueueNotifier(sqs.NewFromConfig(*awsCfg), cfg.LeadQueueURL, logger))
		}
	}
	return notifiers
}
