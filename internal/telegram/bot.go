package telegram

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Bot runs the single community bot: webhook mode when a public base URL is
// configured, long-poll fallback otherwise.
type Bot struct {
	client         *Client
	handler        *UpdateHandler
	secret         string
	webhookBaseURL string
	webhookSecret  string
	pollTimeout    time.Duration

	stopCh chan struct{}
}

func NewBot(client *Client, handler *UpdateHandler, token, webhookBaseURL, webhookSecret string, pollTimeout time.Duration) *Bot {
	return &Bot{
		client:         client,
		handler:        handler,
		secret:         tokenSecret(token),
		webhookBaseURL: webhookBaseURL,
		webhookSecret:  webhookSecret,
		pollTimeout:    pollTimeout,
		stopCh:         make(chan struct{}),
	}
}

func tokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h[:16])
}

func (b *Bot) Start() error {
	if b.webhookBaseURL != "" {
		url := fmt.Sprintf("%s/webhook/bot/%s", b.webhookBaseURL, b.secret)
		if err := b.client.SetWebhook(url, b.webhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Printf("[bot] webhook registered: %s", url)
		return nil
	}

	if err := b.client.DeleteWebhook(); err != nil {
		log.Printf("[bot] delete webhook: %v", err)
	}
	go b.pollLoop()
	log.Println("[bot] long polling started")
	return nil
}

func (b *Bot) Stop() {
	close(b.stopCh)
	if b.webhookBaseURL != "" {
		b.client.DeleteWebhook()
	}
	log.Println("[bot] stopped")
}

func (b *Bot) pollLoop() {
	var offset int64
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		updates, err := b.client.GetUpdates(offset, int(b.pollTimeout.Seconds()))
		if err != nil {
			log.Printf("[bot] get updates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			b.handler.Handle(upd)
		}
	}
}

// HandleWebhook is the gin endpoint Telegram posts updates to.
func (b *Bot) HandleWebhook(c *gin.Context) {
	if c.Param("secret") != b.secret {
		c.Status(http.StatusNotFound)
		return
	}
	if b.webhookSecret != "" {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != b.webhookSecret {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	go b.handler.Handle(upd)

	c.Status(http.StatusOK)
}
