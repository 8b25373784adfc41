package transcribe

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		hint    string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"en", "en", false},
		{" EN ", "en", false},
		{"pt-BR", "pt", false},
		{"zh_Hant", "zh", false},
		{"English", "en", false},
		{"spanish", "es", false},
		{"klingonese", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got, err := NormalizeLanguage(tt.hint)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.hint, got, tt.want)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("fr"); got != "French" {
		t.Errorf("LanguageName(fr) = %q", got)
	}
	if got := LanguageName("not a tag!"); got != "not a tag!" {
		t.Errorf("LanguageName should echo unparseable input, got %q", got)
	}
}
