package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{
			name:   "rate limited",
			err:    genai.APIError{Code: http.StatusTooManyRequests},
			expect: true,
		},
		{
			name:   "server error",
			err:    genai.APIError{Code: http.StatusInternalServerError},
			expect: true,
		},
		{
			name:   "bad gateway",
			err:    genai.APIError{Code: http.StatusBadGateway},
			expect: true,
		},
		{
			name:   "unavailable",
			err:    genai.APIError{Code: http.StatusServiceUnavailable},
			expect: true,
		},
		{
			name:   "invalid request is permanent",
			err:    genai.APIError{Code: http.StatusBadRequest},
			expect: false,
		},
		{
			name:   "wrapped api error",
			err:    fmt.Errorf("call failed: %w", genai.APIError{Code: http.StatusTooManyRequests}),
			expect: true,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTemporary(tt.err); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCollectText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "  first  "},
						{Text: ""},
						{Text: "second"},
					},
				},
			},
			nil,
		},
	}

	text, err := collectText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "first\nsecond" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestCollectTextEmptyResponse(t *testing.T) {
	if _, err := collectText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(t.Context(), "   ", "", 0, nil); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
