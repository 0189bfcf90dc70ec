package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"time"

	"google.golang.org/api/gmail/v1"
)

const EMAIL_INTERVAL = 3 * time.Second

// SendEmail sends a plain text email with the specified subject and body.
// Throttles requests to respect Gmail API rate limits; the wait honours ctx.
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		if wait := c.interval - time.Since(c.lastSendTime); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("failed to send email: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	message := buildMessage(c.sender, to, subject, body)

	gmailMessage := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(message)),
	}

	_, err := c.service.Users.Messages.Send("me", gmailMessage).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()

	return nil
}

func buildMessage(from, to, subject, body string) string {
	headers := fmt.Sprintf("To: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n",
		to, mime.QEncoding.Encode("utf-8", subject))
	if from != "" {
		headers = "From: " + from + "\r\n" + headers
	}
	return headers + "\r\n" + body
}
