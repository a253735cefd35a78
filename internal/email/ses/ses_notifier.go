package ses

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"motscan/internal/config"
	"motscan/internal/port"
)

type sesNotifier struct {
	client       *sesv2.Client
	fromAddress  string
	fromName     string
	reviewInbox  string
	dashboardURL string
}

// NewSESNotifier creates a new SES-backed ReviewNotifier.
func NewSESNotifier(cfg config.EmailConfig) (port.ReviewNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesNotifier{
		client:       sesv2.NewFromConfig(awsCfg),
		fromAddress:  cfg.FromAddress,
		fromName:     cfg.FromName,
		reviewInbox:  cfg.ReviewInbox,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

func (s *sesNotifier) SendReviewRequested(ctx context.Context, n port.ReviewNotification) error {
	if s.reviewInbox == "" {
		return nil
	}

	reviewURL := fmt.Sprintf("%s/review/%s", s.dashboardURL, n.JobID)
	registration := n.Registration
	if registration == "" {
		registration = "unknown"
	}

	subject := fmt.Sprintf("Extraction %s needs manual review (%s)", n.JobID, registration)
	textBody := fmt.Sprintf(
		"Extraction %s for registration %s needs manual review.\n\nOverall confidence: %.2f\nReasons:\n- %s\n\nReview it here: %s\n",
		n.JobID, registration, n.Confidence, strings.Join(n.Reasons, "\n- "), reviewURL)
	htmlBody := buildReviewHTML(n, registration, reviewURL)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{s.reviewInbox},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildReviewHTML(n port.ReviewNotification, registration, reviewURL string) string {
	var reasons strings.Builder
	for _, r := range n.Reasons {
		reasons.WriteString("<li>" + r + "</li>")
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Extraction needs manual review</h2>
  <p>Extraction <strong>%s</strong> for registration <strong>%s</strong> was flagged for manual review.</p>
  <p>Overall confidence: <strong>%.2f</strong></p>
  <ul>%s</ul>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open Review</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">motscan - MOT Screenshot Extraction</p>
</body>
</html>`, n.JobID, registration, n.Confidence, reasons.String(), reviewURL)
}
