// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/matheus3301/postbot/internal/platform"
)

// Sent is one recorded Send call.
type Sent struct {
	ChatID string
	Out    platform.Outbound
	IDs    []string
}

// Edit is one recorded edit.
type Edit struct {
	ChatID    string
	MessageID string
	Text      string
	Caption   bool
	Keyboard  platform.Keyboard
}

// Reply is one recorded admin-facing message or menu edit.
type Reply struct {
	ChatID    int64
	MessageID string
	Text      string
	Keyboard  platform.Keyboard
	Edited    bool
}

// Fake implements platform.Bot and records every call. Failure hooks
// return an error for matching calls.
type Fake struct {
	mu     sync.Mutex
	nextID int

	Sends   []Sent
	Edits   []Edit
	KBEdits []Edit
	Deletes []string
	Replies []Reply
	Answers []string
	Uploads [][]byte
	Files   map[string][]byte

	FailSend   func(n int, out platform.Outbound) error
	FailEdit   error
	FailDelete func(messageID string) error
}

var _ platform.Bot = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{Files: map[string][]byte{}}
}

func (f *Fake) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *Fake) Send(_ context.Context, chatID string, out platform.Outbound) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend != nil {
		if err := f.FailSend(len(f.Sends), out); err != nil {
			return nil, err
		}
	}
	var ids []string
	if out.Kind == platform.KindGroup {
		for range out.Media {
			ids = append(ids, f.id())
		}
	} else {
		ids = []string{f.id()}
	}
	f.Sends = append(f.Sends, Sent{ChatID: chatID, Out: out, IDs: ids})
	return ids, nil
}

func (f *Fake) EditText(_ context.Context, chatID, messageID, html string, caption bool, kb platform.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdit != nil {
		return f.FailEdit
	}
	f.Edits = append(f.Edits, Edit{ChatID: chatID, MessageID: messageID, Text: html, Caption: caption, Keyboard: kb})
	return nil
}

func (f *Fake) EditKeyboard(_ context.Context, chatID, messageID string, kb platform.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdit != nil {
		return f.FailEdit
	}
	f.KBEdits = append(f.KBEdits, Edit{ChatID: chatID, MessageID: messageID, Keyboard: kb})
	return nil
}

func (f *Fake) Delete(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete != nil {
		if err := f.FailDelete(messageID); err != nil {
			return err
		}
	}
	f.Deletes = append(f.Deletes, messageID)
	return nil
}

func (f *Fake) Download(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[ref]
	if !ok {
		return nil, fmt.Errorf("file %q not found", ref)
	}
	return data, nil
}

func (f *Fake) Reply(_ context.Context, chatID int64, html string, kb platform.Keyboard) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.Replies = append(f.Replies, Reply{ChatID: chatID, MessageID: id, Text: html, Keyboard: kb})
	return id, nil
}

func (f *Fake) EditMenu(_ context.Context, chatID int64, messageID, html string, kb platform.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, Reply{ChatID: chatID, MessageID: messageID, Text: html, Keyboard: kb, Edited: true})
	return nil
}

func (f *Fake) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Answers = append(f.Answers, callbackID)
	return nil
}

func (f *Fake) UploadPhoto(_ context.Context, _ int64, data []byte, _ string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, data)
	return fmt.Sprintf("photo-%d", len(f.Uploads)), f.id(), nil
}

// LastReply returns the most recent admin-facing message.
func (f *Fake) LastReply() Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Replies) == 0 {
		return Reply{}
	}
	return f.Replies[len(f.Replies)-1]
}

// SendsTo returns the Send calls addressed to chatID.
func (f *Fake) SendsTo(chatID string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sends {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sends, f.Edits, f.KBEdits, f.Deletes, f.Replies, f.Answers, f.Uploads = nil, nil, nil, nil, nil, nil, nil
}

// HasButton reports whether kb holds a button with the given callback data.
func HasButton(kb platform.Keyboard, data string) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

// FindButton returns the callback data of the first button whose text is label.
func FindButton(kb platform.Keyboard, label string) (string, bool) {
	for _, row := range kb {
		for _, b := range row {
			if b.Text == label {
				return b.Data, true
			}
		}
	}
	return "", false
}
