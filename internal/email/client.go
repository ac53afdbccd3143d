package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client sends transactional email through Postmark's JSON API.
type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendInvite emails a household invite code to a prospective partner.
func (c *Client) SendInvite(toEmail, code, householdName, inviterName string) error {
	subject := fmt.Sprintf("%s invited you to house-hunt together on HomeMatch", inviterName)
	textBody := fmt.Sprintf(
		"%s wants you to join %q on HomeMatch so you can swipe on homes together.\n\n"+
			"Your invite code is: %s\n\nThe code expires in 72 hours.",
		inviterName, householdName, code,
	)
	htmlBody := fmt.Sprintf(
		`<p>%s wants you to join <strong>%s</strong> on HomeMatch so you can swipe on homes together.</p>`+
			`<p>Your invite code is: <strong>%s</strong></p><p>The code expires in 72 hours.</p>`,
		inviterName, householdName, code,
	)
	return c.send(toEmail, subject, textBody, htmlBody)
}

// SendWelcome emails a short welcome after registration.
func (c *Client) SendWelcome(toEmail, name, householdName string) error {
	subject := "Welcome to HomeMatch"
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour household %q is ready. Invite your partner from the app, "+
			"start swiping, and we'll tell you the moment you both like the same home.",
		name, householdName,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your household <strong>%s</strong> is ready. Invite your partner from the app, `+
			`start swiping, and we'll tell you the moment you both like the same home.</p>`,
		name, householdName,
	)
	return c.send(toEmail, subject, textBody, htmlBody)
}

func (c *Client) send(toEmail, subject, textBody, htmlBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark returned %d", resp.StatusCode)
	}
	return nil
}
