package dispatch

import (
	"errors"
	"fmt"
)

// Delivery operations.
const (
	OpSend         = "send"
	OpEditText     = "edit_text"
	OpEditKeyboard = "edit_keyboard"
	OpDelete       = "delete"
)

// ErrUnsupported is returned when the channel copy cannot take an edit in
// place, for example buttons on a grouped message.
var ErrUnsupported = errors.New("not supported by the channel copy")

// DeliveryError is a failed platform call. RetryableAsNewPost marks edits
// that changed the local record but not the channel: publishing the post
// again is the only way to bring the channel up to date.
type DeliveryError struct {
	Op                 string
	Channel            string
	Err                error
	RetryableAsNewPost bool
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %s: %v", e.Op, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// AsDeliveryError returns the DeliveryError in err's chain, if any.
func AsDeliveryError(err error) (*DeliveryError, bool) {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
