package transcribe

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLanguage maps a language hint to its base ISO code ("en",
// "pt", ...). Tags ("pt-BR", "zh_Hant") and English names ("Spanish") are
// accepted. An empty hint stays empty.
func NormalizeLanguage(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", nil
	}

	tag, err := language.Parse(strings.ReplaceAll(hint, "_", "-"))
	if err != nil {
		tag, err = tagForName(hint)
		if err != nil {
			return "", err
		}
	}

	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("unknown language %q", hint)
	}
	return base.String(), nil
}

// LanguageName returns the English name of a language code, or the code
// itself when it has none.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func tagForName(name string) (language.Tag, error) {
	namer := display.English.Languages()
	for _, tag := range display.Supported.Tags() {
		if strings.EqualFold(namer.Name(tag), name) {
			return tag, nil
		}
	}
	return language.Und, fmt.Errorf("unknown language %q", name)
}
