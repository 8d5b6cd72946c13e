package showdesktop

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Translatable strings.
const (
	msgShowDesktop = "Show Desktop"
	msgUndock      = "Undock"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.Russian,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

func init() {
	translations := map[language.Tag]map[string]string{
		language.English: {
			msgShowDesktop: "Show Desktop",
			msgUndock:      "Undock",
		},
		language.SimplifiedChinese: {
			msgShowDesktop: "显示桌面",
			msgUndock:      "移除驻留",
		},
		language.TraditionalChinese: {
			msgShowDesktop: "顯示桌面",
			msgUndock:      "移除駐留",
		},
		language.Russian: {
			msgShowDesktop: "Показать рабочий стол",
			msgUndock:      "Открепить",
		},
	}

	for tag, messages := range translations {
		for key, msg := range messages {
			message.SetString(tag, key, msg)
		}
	}
}

// Translator looks up display strings of the plugin in a single language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// NewTranslator returns a [Translator] for the given POSIX locale, such as
// "zh_CN.UTF-8". Unsupported or malformed locales fall back to English.
func NewTranslator(locale string) *Translator {
	tag := matchLocale(locale)

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// NewTranslatorFromEnv returns a [Translator] for the locale of the process,
// taken from the first non-empty of LC_ALL, LC_MESSAGES and LANG.
func NewTranslatorFromEnv() *Translator {
	return NewTranslator(localeFromEnv())
}

// Language returns the language strings are translated to.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Tr returns the translation of key. Unknown keys are returned as is.
func (t *Translator) Tr(key string) string {
	return t.printer.Sprintf(key)
}

func localeFromEnv() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}

	return ""
}

// matchLocale converts a POSIX locale name of the form
//
//	language[_territory][.codeset][@modifier]
//
// to the closest supported language.
func matchLocale(locale string) language.Tag {
	name, _, _ := strings.Cut(locale, ".")
	name, _, _ = strings.Cut(name, "@")

	if name == "" || name == "C" || name == "POSIX" {
		return language.English
	}

	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return language.English
	}

	_, idx, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return language.English
	}

	return supportedLanguages[idx]
}
