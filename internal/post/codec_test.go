package post

import (
	"errors"
	"testing"
)

func TestMediaBlobRoundTrip(t *testing.T) {
	in := []MediaItem{
		{Kind: Photo, Ref: "AgAC-1"},
		{Kind: Document, Ref: "BQAC-2"},
		{Kind: Photo, Ref: "AgAC-3"},
	}
	blob, err := EncodeMedia(in)
	if err != nil {
		t.Fatalf("EncodeMedia() error = %v", err)
	}
	out, err := DecodeMedia(blob)
	if err != nil {
		t.Fatalf("DecodeMedia() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("item %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEmptyBlobs(t *testing.T) {
	blob, err := EncodeButtons(nil)
	if err != nil || blob != "" {
		t.Fatalf("EncodeButtons(nil) = %q, %v", blob, err)
	}
	got, err := DecodeButtons("")
	if err != nil || got != nil {
		t.Errorf("DecodeButtons(\"\") = %v, %v", got, err)
	}
}

func TestDecodeRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"legacy stringified list", "[{'file_id': 'x', 'type': 'photo'}]"},
		{"unknown version", `{"v":2,"items":[{"kind":"photo","ref":"x"}]}`},
		{"missing version", `{"items":[{"kind":"photo","ref":"x"}]}`},
		{"unknown kind", `{"v":1,"items":[{"kind":"sticker","ref":"x"}]}`},
		{"empty ref", `{"v":1,"items":[{"kind":"photo","ref":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeMedia(tt.blob); !errors.Is(err, ErrBlobSchema) {
				t.Errorf("DecodeMedia() error = %v, want ErrBlobSchema", err)
			}
		})
	}
}

func TestEncodeRejectsInvalidButton(t *testing.T) {
	_, err := EncodeButtons([]Button{{Label: "", URL: "https://example.com"}})
	if !errors.Is(err, ErrBlobSchema) {
		t.Errorf("EncodeButtons() error = %v, want ErrBlobSchema", err)
	}
}

func TestButtonsBlobRoundTrip(t *testing.T) {
	in := []Button{{Label: "Go", URL: "https://example.com"}, {Label: "Docs", URL: "https://docs.example.com"}}
	blob, err := EncodeButtons(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeButtons(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("DecodeButtons() = %+v, want %+v", out, in)
	}
}
