package gemini

import (
	"encoding/base64"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/parley-chat/parley/internal/attachment"
	"github.com/parley-chat/parley/internal/config"
)

func TestBuildContents_TextOnly(t *testing.T) {
	contents, err := buildContents(Request{Text: "hello"})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("role = %q, want user", contents[0].Role)
	}
	if len(contents[0].Parts) != 1 || contents[0].Parts[0].Text != "hello" {
		t.Errorf("unexpected parts: %+v", contents[0].Parts)
	}
}

func TestBuildContents_HistoryPrecedesNewTurn(t *testing.T) {
	contents, err := buildContents(Request{
		History: []Message{
			{Role: RoleUser, Text: "first"},
			{Role: RoleModel, Text: "second"},
			{Role: RoleUser, Text: "   "},
		},
		Text: "third",
	})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	// Blank history turns are dropped.
	if len(contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(contents))
	}
	if contents[0].Parts[0].Text != "first" || contents[1].Parts[0].Text != "second" {
		t.Error("history turns out of order")
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("history role = %q, want model", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "third" {
		t.Error("new turn must come last")
	}
}

func TestBuildContents_InlineImages(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	contents, err := buildContents(Request{
		Text: "what is this?",
		Images: []attachment.Payload{
			{Data: base64.StdEncoding.EncodeToString(raw), MIMEType: "image/png"},
		},
	})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	parts := contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want image then text", len(parts))
	}
	blob := parts[0].InlineData
	if blob == nil {
		t.Fatal("first part is not inline data")
	}
	if blob.MIMEType != "image/png" {
		t.Errorf("mime = %q, want image/png", blob.MIMEType)
	}
	if string(blob.Data) != string(raw) {
		t.Error("payload not decoded back to raw bytes")
	}
	if parts[1].Text != "what is this?" {
		t.Error("text part must follow images")
	}
}

func TestBuildContents_ImagesWithoutText(t *testing.T) {
	contents, err := buildContents(Request{
		Images: []attachment.Payload{
			{Data: base64.StdEncoding.EncodeToString([]byte("x")), MIMEType: "image/jpeg"},
		},
	})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	if len(contents[0].Parts) != 1 || contents[0].Parts[0].InlineData == nil {
		t.Error("image-only request should carry a single inline part")
	}
}

func TestBuildContents_BadBase64(t *testing.T) {
	_, err := buildContents(Request{
		Text:   "hi",
		Images: []attachment.Payload{{Data: "not base64!!", MIMEType: "image/png"}},
	})
	if err == nil {
		t.Fatal("expected error for undecodable payload")
	}
}

func TestBuildContents_Empty(t *testing.T) {
	if _, err := buildContents(Request{Text: "   "}); err == nil {
		t.Fatal("expected error for blank request")
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(t.Context(), nil, nil)
	if err == nil {
		t.Fatal("expected error for nil config")
	}

	_, err = New(t.Context(), &config.Config{}, nil)
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("err = %v, want %v", err, config.ErrMissingAPIKey)
	}
}
