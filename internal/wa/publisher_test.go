package wa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matheus3301/postbot/internal/dispatch"
	"github.com/matheus3301/postbot/internal/platform"
	"github.com/matheus3301/postbot/internal/platform/platformtest"
	"github.com/matheus3301/postbot/internal/post"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

const newsletter = "120363000000000000@newsletter"

type sent struct {
	To     types.JID
	Msg    *waE2E.Message
	Handle string
}

type fakeClient struct {
	sent    []sent
	uploads []whatsmeow.MediaType
	sendErr error
}

func (f *fakeClient) SendMessage(_ context.Context, to types.JID, msg *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	if f.sendErr != nil {
		return whatsmeow.SendResponse{}, f.sendErr
	}
	s := sent{To: to, Msg: msg}
	if len(extra) > 0 {
		s.Handle = extra[0].MediaHandle
	}
	f.sent = append(f.sent, s)
	return whatsmeow.SendResponse{ID: types.MessageID("M" + string(rune('0'+len(f.sent))))}, nil
}

func (f *fakeClient) UploadNewsletter(_ context.Context, data []byte, kind whatsmeow.MediaType) (whatsmeow.UploadResponse, error) {
	f.uploads = append(f.uploads, kind)
	return whatsmeow.UploadResponse{URL: "https://mmg.example/x", DirectPath: "/x", Handle: "h", FileLength: uint64(len(data))}, nil
}

func (f *fakeClient) BuildEdit(_ types.JID, id types.MessageID, content *waE2E.Message) *waE2E.Message {
	return &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{
		Key:           &waCommon.MessageKey{ID: proto.String(id)},
		EditedMessage: content,
	}}
}

func (f *fakeClient) BuildRevoke(_, _ types.JID, id types.MessageID) *waE2E.Message {
	return &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{Key: &waCommon.MessageKey{ID: proto.String(id)}}}
}

func newTestPublisher() (*Publisher, *fakeClient, *platformtest.Fake) {
	c := &fakeClient{}
	media := platformtest.New()
	media.Files["p1"] = []byte("\xff\xd8\xff\xe0 jpeg")
	media.Files["p2"] = []byte("\xff\xd8\xff\xe0 jpeg")
	media.Files["d1"] = []byte("%PDF-1.4")
	return NewPublisher(c, media, zap.NewNop()), c, media
}

func TestSendText(t *testing.T) {
	p, c, _ := newTestPublisher()
	ids, err := p.Send(context.Background(), newsletter, platform.Outbound{
		Kind:     platform.KindText,
		Text:     "<b>Sale</b> today",
		Keyboard: platform.URLRows([]post.Button{{Label: "Shop", URL: "https://shop.example"}}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || len(c.sent) != 1 {
		t.Fatalf("ids = %v, sent = %d; want one message", ids, len(c.sent))
	}
	got := c.sent[0].Msg.GetExtendedTextMessage().GetText()
	want := "*Sale* today\n\nShop: https://shop.example"
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
	if c.sent[0].To.Server != types.NewsletterServer {
		t.Errorf("server = %q, want newsletter", c.sent[0].To.Server)
	}
}

func TestSendGroupAsConsecutiveMessages(t *testing.T) {
	p, c, _ := newTestPublisher()
	ids, err := p.Send(context.Background(), newsletter, platform.Outbound{
		Kind:     platform.KindGroup,
		Text:     "album",
		Media:    []post.MediaItem{{Kind: post.Photo, Ref: "p1"}, {Kind: post.Photo, Ref: "p2"}},
		Keyboard: platform.URLRows([]post.Button{{Label: "Go", URL: "https://example.com"}}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2", ids)
	}
	if c.sent[0].Msg.GetImageMessage().GetCaption() != "album" {
		t.Errorf("first caption = %q", c.sent[0].Msg.GetImageMessage().GetCaption())
	}
	if c.sent[1].Msg.GetImageMessage().GetCaption() != "Go: https://example.com" {
		t.Errorf("last caption = %q", c.sent[1].Msg.GetImageMessage().GetCaption())
	}
	if c.sent[0].Handle != "h" {
		t.Errorf("media handle = %q, want h", c.sent[0].Handle)
	}
	if c.uploads[0] != whatsmeow.MediaImage {
		t.Errorf("upload type = %v, want image", c.uploads[0])
	}
}

func TestSendDocument(t *testing.T) {
	p, c, _ := newTestPublisher()
	_, err := p.Send(context.Background(), newsletter, platform.Outbound{
		Kind:  platform.KindDocument,
		Media: []post.MediaItem{{Kind: post.Document, Ref: "d1"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	doc := c.sent[0].Msg.GetDocumentMessage()
	if doc == nil {
		t.Fatal("expected a document message")
	}
	if doc.GetMimetype() != "application/pdf" {
		t.Errorf("mimetype = %q", doc.GetMimetype())
	}
	if doc.Caption != nil {
		t.Errorf("caption = %q, want none", doc.GetCaption())
	}
}

func TestSendMissingMedia(t *testing.T) {
	p, c, _ := newTestPublisher()
	_, err := p.Send(context.Background(), newsletter, platform.Outbound{
		Kind:  platform.KindPhoto,
		Media: []post.MediaItem{{Kind: post.Photo, Ref: "missing"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown ref")
	}
	if len(c.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(c.sent))
	}
}

func TestSendError(t *testing.T) {
	p, c, _ := newTestPublisher()
	c.sendErr = errors.New("server returned error 479")
	_, err := p.Send(context.Background(), newsletter, platform.Outbound{Kind: platform.KindText, Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "479") {
		t.Fatalf("err = %v, want wrapped send error", err)
	}
}

func TestEditText(t *testing.T) {
	p, c, _ := newTestPublisher()
	if err := p.EditText(context.Background(), newsletter, "M1", "new <i>text</i>", false, nil); err != nil {
		t.Fatal(err)
	}
	pm := c.sent[0].Msg.GetProtocolMessage()
	if pm.GetKey().GetID() != "M1" {
		t.Errorf("edited id = %q, want M1", pm.GetKey().GetID())
	}
	if got := pm.GetEditedMessage().GetExtendedTextMessage().GetText(); got != "new _text_" {
		t.Errorf("edited text = %q", got)
	}
}

func TestUnsupportedEdits(t *testing.T) {
	p, c, _ := newTestPublisher()
	if err := p.EditText(context.Background(), newsletter, "M1", "x", true, nil); !errors.Is(err, dispatch.ErrUnsupported) {
		t.Errorf("caption edit err = %v, want ErrUnsupported", err)
	}
	if err := p.EditKeyboard(context.Background(), newsletter, "M1", nil); !errors.Is(err, dispatch.ErrUnsupported) {
		t.Errorf("keyboard edit err = %v, want ErrUnsupported", err)
	}
	if len(c.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(c.sent))
	}
}

func TestDelete(t *testing.T) {
	p, c, _ := newTestPublisher()
	if err := p.Delete(context.Background(), newsletter, "M7"); err != nil {
		t.Fatal(err)
	}
	if got := c.sent[0].Msg.GetProtocolMessage().GetKey().GetID(); got != "M7" {
		t.Errorf("revoked id = %q, want M7", got)
	}
}

func TestCaptionWithButtons(t *testing.T) {
	kb := platform.Keyboard{
		{{Text: "A", URL: "https://a.example"}},
		{{Text: "menu", Data: "m:create"}},
	}
	tests := []struct {
		html string
		kb   platform.Keyboard
		want string
	}{
		{"", nil, ""},
		{"plain", nil, "plain"},
		{"", kb, "A: https://a.example"},
		{"<b>x</b>", kb, "*x*\n\nA: https://a.example"},
	}
	for _, tt := range tests {
		if got := captionWithButtons(tt.html, tt.kb); got != tt.want {
			t.Errorf("captionWithButtons(%q) = %q, want %q", tt.html, got, tt.want)
		}
	}
}
