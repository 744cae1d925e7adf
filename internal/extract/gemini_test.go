package extract

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"merchant": "X"}`,
			want:  `{"merchant": "X"}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"merchant\": \"X\"}\n```",
			want:  `{"merchant": "X"}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"merchant\": \"X\"}\n```",
			want:  `{"merchant": "X"}`,
		},
		{
			name:  "leading prose",
			input: "Here is the result:\n{\"merchant\": \"X\"}",
			want:  `{"merchant": "X"}`,
		},
		{
			name:  "trailing prose",
			input: "{\"merchant\": \"X\"}\nLet me know if you need anything else.",
			want:  `{"merchant": "X"}`,
		},
		{
			name:  "whitespace only wrapping",
			input: "\n\n  {\"a\": 1}  \n",
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllowedMIMEType(t *testing.T) {
	tests := []struct {
		kind Kind
		mime string
		want bool
	}{
		{KindReceipt, "image/jpeg", true},
		{KindReceipt, "image/png", true},
		{KindReceipt, "image/webp", true},
		{KindReceipt, "application/pdf", false},
		{KindStatement, "application/pdf", true},
		{KindStatement, "image/jpeg", true},
		{KindStatement, "text/csv", false},
		{Kind("bogus"), "image/jpeg", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.mime, func(t *testing.T) {
			if got := AllowedMIMEType(tt.kind, tt.mime); got != tt.want {
				t.Errorf("AllowedMIMEType(%q, %q) = %v, want %v", tt.kind, tt.mime, got, tt.want)
			}
		})
	}
}

func TestNewGeminiExtractor_DefaultModel(t *testing.T) {
	g := NewGeminiExtractor("")
	if g.model != DefaultModelName {
		t.Errorf("model = %q, want %q", g.model, DefaultModelName)
	}

	g = NewGeminiExtractor("gemini-2.5-pro")
	if g.model != "gemini-2.5-pro" {
		t.Errorf("model = %q", g.model)
	}
}
