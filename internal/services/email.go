package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/rs/zerolog/log"
)

// EmailService sends transactional mail through SES, falling back to SMTP
// when no AWS credentials are configured
type EmailService struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string

	sesClient *ses.SES
	useSES    bool
}

// NewEmailService creates a new email service
func NewEmailService() (*EmailService, error) {
	emailService := &EmailService{}

	awsRegion := os.Getenv("AWS_REGION")
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	sesFromEmail := os.Getenv("SES_FROM_EMAIL")

	if awsRegion != "" && awsAccessKey != "" && awsSecretKey != "" && sesFromEmail != "" {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(awsRegion),
			Credentials: credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}

		emailService.sesClient = ses.New(sess)
		emailService.fromEmail = sesFromEmail
		emailService.useSES = true

		log.Info().Str("region", awsRegion).Msg("AWS SES configured")
		return emailService, nil
	}

	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPassword := os.Getenv("SMTP_PASSWORD")
	fromEmail := os.Getenv("FROM_EMAIL")

	if smtpHost == "" || smtpPort == "" || smtpUser == "" || smtpPassword == "" || fromEmail == "" {
		return nil, fmt.Errorf("email service not configured. Set either AWS SES credentials (AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, SES_FROM_EMAIL) or SMTP credentials (SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, FROM_EMAIL)")
	}

	emailService.smtpHost = smtpHost
	emailService.smtpPort = smtpPort
	emailService.smtpUser = smtpUser
	emailService.smtpPassword = smtpPassword
	emailService.fromEmail = fromEmail
	emailService.useSES = false

	return emailService, nil
}

// SendEmail sends an email using SES or SMTP
func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if s.useSES {
		return s.sendEmailWithSES(to, subject, body)
	}
	return s.sendEmailWithSMTP(to, subject, body)
}

var passwordResetTemplate = template.Must(template.New("reset").Parse(`
<html>
<body style="font-family: sans-serif; color: #1f2937;">
	<h2>Password reset</h2>
	<p>Hi {{.Name}},</p>
	<p>We received a request to reset your password. Click the link below to choose a new one. The link is valid for one hour.</p>
	<p><a href="{{.ResetURL}}" style="color: #2563eb;">Reset my password</a></p>
	<p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

// SendPasswordResetEmail sends the reset link to a user
func (s *EmailService) SendPasswordResetEmail(to, name, token string) error {
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	var body bytes.Buffer
	if err := passwordResetTemplate.Execute(&body, map[string]string{
		"Name":     name,
		"ResetURL": fmt.Sprintf("%s/reset-password?token=%s", baseURL, token),
	}); err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}

	return s.SendEmail([]string{to}, "Reset your password", body.String())
}

func (s *EmailService) sendEmailWithSES(to []string, subject, body string) error {
	if s.sesClient == nil {
		return fmt.Errorf("SES client not configured")
	}

	var toAddresses []*string
	for _, addr := range to {
		toAddresses = append(toAddresses, aws.String(addr))
	}

	input := &ses.SendEmailInput{
		Destination: &ses.Destination{
			ToAddresses: toAddresses,
		},
		Message: &ses.Message{
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(body),
				},
			},
			Subject: &ses.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
		},
		Source: aws.String(s.fromEmail),
	}

	if _, err := s.sesClient.SendEmail(input); err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	return nil
}

func (s *EmailService) sendEmailWithSMTP(to []string, subject, body string) error {
	addr := s.smtpHost + ":" + s.smtpPort
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte("From: " + s.fromEmail + "\r\n" +
		"To: " + to[0] + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + body)

	if err := smtp.SendMail(addr, auth, s.fromEmail, to, msg); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	return nil
}
