package main

import (
	"crypto/tls"
	"io"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

type emailRequest struct {
	Subject        string
	To             []string
	ReplyTo        string
	From           string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// activityLogEmail builds the message that sends a run's activity log to the person who uploaded it
func (svc *ServiceContext) activityLogEmail(to string, repoID string, uploadName string, activity string) *emailRequest {
	return &emailRequest{
		Subject:        "Digital Object Manager update of " + uploadName + " in repository " + repoID,
		To:             []string{to},
		From:           svc.SMTP.Sender,
		ReplyTo:        svc.SMTP.Sender,
		Body:           "The activity log for the digital object update of " + uploadName + " is attached.\n",
		AttachmentName: "activity_log.txt",
		Attachment:     []byte(activity),
	}
}

func (svc *ServiceContext) sendEmail(request *emailRequest) error {
	mail := gomail.NewMessage()
	mail.SetHeader("MIME-version", "1.0")
	mail.SetHeader("Subject", request.Subject)
	mail.SetHeader("To", request.To...)
	mail.SetHeader("From", request.From)
	if request.ReplyTo != "" {
		mail.SetHeader("Reply-To", request.ReplyTo)
	}
	mail.SetBody("text/plain", request.Body)
	if request.AttachmentName != "" {
		data := request.Attachment
		mail.Attach(request.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if svc.SMTP.FakeSMTP {
		log.Printf("Email is in dev mode. Logging message instead of sending")
		log.Printf("==================================================")
		mail.WriteTo(log.Writer())
		log.Printf("==================================================")
		return nil
	}

	log.Printf("Sending %s email to %s", request.Subject, strings.Join(request.To, ","))
	if svc.SMTP.Pass != "" {
		dialer := gomail.Dialer{Host: svc.SMTP.Host, Port: svc.SMTP.Port, Username: svc.SMTP.User, Password: svc.SMTP.Pass}
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		return dialer.DialAndSend(mail)
	}

	log.Printf("Sending email with no auth")
	dialer := gomail.Dialer{Host: svc.SMTP.Host, Port: svc.SMTP.Port}
	dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	return dialer.DialAndSend(mail)
}
