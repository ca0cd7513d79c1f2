package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/courtside/ladder-system/config"
	"github.com/courtside/ladder-system/models"
)

// EmailService шлёт уведомления по SMTP. Отправка - fire-and-forget со
// стороны вызывающих сервисов: корректность движка рейтинга от неё не зависит.
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("failed to create smtp client: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("starttls failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close DATA: %w", err)
	}
	return nil
}

func (s *EmailService) GenerateEmailBody(templatePath string, data interface{}) (string, error) {
	t, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templatePath, err)
	}
	return body.String(), nil
}

// SendChallengeEmail уведомляет вызванного игрока о новом вызове.
func (s *EmailService) SendChallengeEmail(opponentEmail string, challenger *models.Player, tournament *models.Tournament, match *models.Match) error {
	subject := fmt.Sprintf("New challenge in %s", tournament.Name)
	data := struct {
		ChallengerName string
		TournamentName string
		ProposedDate   string
		MatchLink      string
	}{
		ChallengerName: challenger.FirstName + " " + challenger.LastName,
		TournamentName: tournament.Name,
		ProposedDate:   match.ProposedDate.Format("Mon, Jan 2 15:04"),
		MatchLink:      fmt.Sprintf("%s/matches/%d", s.cfg.PublicURL, match.ID),
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/challenge_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to render challenge email: %w", err)
	}
	return s.SendEmail([]string{opponentEmail}, subject, htmlBody)
}

// SendTournamentInviteEmail приглашает игрока в турнир.
func (s *EmailService) SendTournamentInviteEmail(playerEmail string, tournament *models.Tournament) error {
	subject := fmt.Sprintf("You're invited to %s", tournament.Name)
	data := struct {
		TournamentName string
		City           string
		State          string
		NTRPLevel      float64
		JoinLink       string
	}{
		TournamentName: tournament.Name,
		City:           tournament.City,
		State:          tournament.State,
		NTRPLevel:      tournament.NTRPLevel,
		JoinLink:       fmt.Sprintf("%s/tournaments/%d", s.cfg.PublicURL, tournament.ID),
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/tournament_invite_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to render invite email: %w", err)
	}
	return s.SendEmail([]string{playerEmail}, subject, htmlBody)
}
