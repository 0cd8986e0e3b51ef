package post

import (
	"encoding/json"
	"errors"
	"fmt"
)

// blobVersion is the current envelope version for stored media and buttons.
const blobVersion = 1

// ErrBlobSchema is returned when a stored blob does not match the schema.
var ErrBlobSchema = errors.New("blob schema mismatch")

type envelope[T any] struct {
	V     int `json:"v"`
	Items []T `json:"items"`
}

// EncodeMedia serializes a media list for storage.
func EncodeMedia(items []MediaItem) (string, error) {
	for i, m := range items {
		if err := checkMedia(m); err != nil {
			return "", fmt.Errorf("encode media %d: %w", i, err)
		}
	}
	return encode(items)
}

// DecodeMedia parses a stored media blob. Empty input decodes to nil.
func DecodeMedia(blob string) ([]MediaItem, error) {
	items, err := decode[MediaItem](blob)
	if err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	for i, m := range items {
		if err := checkMedia(m); err != nil {
			return nil, fmt.Errorf("decode media %d: %w", i, err)
		}
	}
	return items, nil
}

// EncodeButtons serializes a button list for storage.
func EncodeButtons(items []Button) (string, error) {
	for i, b := range items {
		if err := checkButton(b); err != nil {
			return "", fmt.Errorf("encode button %d: %w", i, err)
		}
	}
	return encode(items)
}

// DecodeButtons parses a stored buttons blob. Empty input decodes to nil.
func DecodeButtons(blob string) ([]Button, error) {
	items, err := decode[Button](blob)
	if err != nil {
		return nil, fmt.Errorf("decode buttons: %w", err)
	}
	for i, b := range items {
		if err := checkButton(b); err != nil {
			return nil, fmt.Errorf("decode button %d: %w", i, err)
		}
	}
	return items, nil
}

func encode[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	data, err := json.Marshal(envelope[T]{V: blobVersion, Items: items})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode[T any](blob string) ([]T, error) {
	if blob == "" {
		return nil, nil
	}
	var env envelope[T]
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlobSchema, err)
	}
	if env.V != blobVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBlobSchema, env.V)
	}
	if len(env.Items) == 0 {
		return nil, nil
	}
	return env.Items, nil
}

func checkMedia(m MediaItem) error {
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: unknown media kind %q", ErrBlobSchema, m.Kind)
	}
	if m.Ref == "" {
		return fmt.Errorf("%w: empty media ref", ErrBlobSchema)
	}
	return nil
}

func checkButton(b Button) error {
	if b.Label == "" || b.URL == "" {
		return fmt.Errorf("%w: button needs label and url", ErrBlobSchema)
	}
	return nil
}
