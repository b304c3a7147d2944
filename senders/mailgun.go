package senders

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fiffu/arrwatch/lib/models"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (s *mailgunSender) Send(ctx context.Context, sub *models.Subscription, payload Payload) (err error) {
	mg := mailgun.NewMailgun(s.cfg.Mailgun.Domain, s.cfg.Mailgun.APIKey)
	mg.Client().Transport = s.transport

	// Create message with empty body first, then SetHtml so the MIME type
	// is assigned properly.
	message := mg.NewMessage(s.cfg.Mailgun.SenderFrom, payload.Title, "", sub.Endpoint)
	message.SetHtml(fmt.Sprintf(
		`%s<br><a href="%s">%s</a>`,
		payload.Body, payload.URL, payload.URL,
	))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.MailgunTimeout())
	defer cancel()

	_, _, err = mg.Send(ctx, message)
	if err != nil {
		// An address Mailgun permanently rejects is as dead as a gone push
		// endpoint.
		switch mailgun.GetStatusFromErr(err) {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
			return ErrEndpointGone
		}
		return err
	}
	return nil
}
