package export

import (
	"fmt"
	"io"
	"log"

	"github.com/warp/bizops-engine/generic"
	"gopkg.in/gomail.v2"
)

// =============================================================================
// MAILER
// =============================================================================

// SMTPConfig is read from the environment by the config package.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string // SENSITIVE: Never log
	From     string
}

// Message is one outgoing report mail.
type Message struct {
	To             []string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Mailer sends report workbooks over SMTP.
type Mailer struct {
	cfg SMTPConfig

	// Sender replaces the SMTP dialer when set.
	Sender gomail.Sender
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg}
}

// Send delivers msg. A mailer without SMTP settings fails with a
// credential error before anything is dialled.
func (m *Mailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("send mail: no recipients")
	}
	if m.Sender == nil && (m.cfg.Host == "" || m.cfg.From == "") {
		return &generic.MissingCredentialError{Name: "SMTP_HOST/SMTP_FROM"}
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if len(msg.Attachment) > 0 {
		data := msg.Attachment
		gm.Attach(msg.AttachmentName,
			gomail.SetHeader(map[string][]string{"Content-Type": {ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}

	var err error
	if m.Sender != nil {
		err = gomail.Send(m.Sender, gm)
	} else {
		err = gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password).DialAndSend(gm)
	}
	if err != nil {
		log.Printf("[Mail] Failed to send %q: %v", msg.Subject, err)
		return fmt.Errorf("send mail: %w", err)
	}

	log.Printf("[Mail] Sent %q to %d recipient(s)", msg.Subject, len(msg.To))
	return nil
}
