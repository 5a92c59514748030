package push

import (
	"context"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Subscription identifies one browser push endpoint and its encryption keys.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Options carries the per-send signing and delivery parameters.
type Options struct {
	// Subscriber is the contact address the push service may use to reach
	// the sender (webpush-go prefixes mailto: automatically).
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
	Topic           string
}

// Sender is the capability the dispatch engine fans out through. The zero
// status code means the request never produced an HTTP response (transport
// error or timeout).
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload []byte, opts Options) (statusCode int, err error)
}

// WebPushSender delivers payloads over the Web Push protocol with VAPID
// signing.
type WebPushSender struct {
	client *http.Client
}

func NewWebPushSender() *WebPushSender {
	return &WebPushSender{client: &http.Client{}}
}

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload []byte, opts Options) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      opts.Subscriber,
		VAPIDPublicKey:  opts.VAPIDPublicKey,
		VAPIDPrivateKey: opts.VAPIDPrivateKey,
		TTL:             opts.TTL,
		Topic:           opts.Topic,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Push services are not required to send a body; drain so the
	// connection can be reused.
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// GenerateVAPIDKeys creates a new signing key pair for a client.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
