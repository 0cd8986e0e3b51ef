package wa

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/postbot/internal/bus"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
)

// AuthEventType enumerates auth event types.
type AuthEventType string

const (
	AuthEventQRCode        AuthEventType = "qr_code"
	AuthEventAuthenticated AuthEventType = "authenticated"
	AuthEventAuthFailed    AuthEventType = "auth_failed"
	AuthEventTimeout       AuthEventType = "timeout"
)

// AuthEvent represents an auth lifecycle event.
type AuthEvent struct {
	Type    AuthEventType
	QRCode  string
	Message string
}

// ErrAlreadyPaired is returned by StartQRAuth when credentials exist.
var ErrAlreadyPaired = errors.New("already logged in")

// StartQRAuth begins the QR pairing flow. Codes are published on the bus as
// whatsapp.qr events and streamed on the returned channel, which closes
// when pairing ends.
func (a *Adapter) StartQRAuth(ctx context.Context) (<-chan AuthEvent, error) {
	if a.IsLoggedIn() {
		return nil, ErrAlreadyPaired
	}
	qrChan, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get QR channel: %w", err)
	}

	out := make(chan AuthEvent, 10)
	go func() {
		defer close(out)

		// Connect must be called after GetQRChannel.
		if err := a.Connect(); err != nil {
			out <- AuthEvent{Type: AuthEventAuthFailed, Message: err.Error()}
			return
		}
		for item := range qrChan {
			evt, done := authEvent(item)
			if evt.Type == AuthEventQRCode {
				a.bus.Emit(bus.KindWhatsAppQR, evt.QRCode)
			}
			out <- evt
			if done {
				return
			}
		}
	}()
	return out, nil
}

// authEvent maps a QR channel item. done reports the end of the flow.
func authEvent(item whatsmeow.QRChannelItem) (evt AuthEvent, done bool) {
	switch item.Event {
	case "code":
		return AuthEvent{Type: AuthEventQRCode, QRCode: item.Code}, false
	case "success":
		return AuthEvent{Type: AuthEventAuthenticated, Message: "authenticated"}, true
	case "timeout":
		return AuthEvent{Type: AuthEventTimeout, Message: "QR code timeout"}, true
	}
	msg := item.Event
	if item.Error != nil {
		msg = item.Error.Error()
	}
	return AuthEvent{Type: AuthEventAuthFailed, Message: msg}, true
}

// RenderQR draws a pairing code as terminal block characters.
func RenderQR(code string) (string, error) {
	qr, err := qrcode.New(code, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("encode QR: %w", err)
	}
	return qr.ToSmallString(false), nil
}
