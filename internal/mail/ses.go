// internal/mail/ses.go
//
// Amazon SES sender.
//
// Notes
// -----
//   - The client is built from the default AWS credential chain with an
//     explicit region, so the same binary works with instance roles and
//     local profiles.
//   - Both bodies are sent when present; SES picks per recipient client.
package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends through Amazon SES.
type SESSender struct {
	Client SESAPI
	From   string
}

// NewSESSender loads AWS configuration for region and returns a sender.
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("mail: load AWS config: %w", err)
	}
	return &SESSender{Client: ses.NewFromConfig(cfg), From: from}, nil
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, e Email) (Receipt, error) {
	if err := e.Check(); err != nil {
		return Receipt{}, err
	}
	body := &types.Body{}
	if e.Text != "" {
		body.Text = &types.Content{Data: aws.String(e.Text), Charset: aws.String("UTF-8")}
	}
	if e.HTML != "" {
		body.Html = &types.Content{Data: aws.String(e.HTML), Charset: aws.String("UTF-8")}
	}
	out, err := s.Client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: e.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(s.From),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("mail: ses send: %w", err)
	}
	return Receipt{MessageID: aws.ToString(out.MessageId)}, nil
}
