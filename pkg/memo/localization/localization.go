package localization

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var defaultLocale = language.English

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
)

func getBundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		b, err := newBundle(localeFS)
		if err != nil {
			// Message files are embedded at build time
			panic(err)
		}
		bundle = b
	})
	return bundle
}

func newBundle(fsys fs.FS) (*i18n.Bundle, error) {
	b := i18n.NewBundle(defaultLocale)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(fsys, file); err != nil {
			return nil, errors.Wrapf(err, "failed to load message file %s", file)
		}
	}
	return b, nil
}

// SupportedLocales returns every locale with a message file
func SupportedLocales() []language.Tag {
	return getBundle().LanguageTags()
}

// ParseLocale parses a BCP 47 tag or Accept-Language header value, matched
// against the supported locales. Unknown input yields the default locale.
func ParseLocale(value string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return defaultLocale
	}

	matcher := language.NewMatcher(SupportedLocales())
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return defaultLocale
	}
	return SupportedLocales()[index]
}

// Localize returns the message for key in locale, falling back to the
// default locale, then to the key itself.
func Localize(locale language.Tag, key string) string {
	return LocalizeWithData(locale, key, nil)
}

// LocalizeWithData is Localize with template data
func LocalizeWithData(locale language.Tag, key string, data map[string]interface{}) string {
	localizer := i18n.NewLocalizer(getBundle(), locale.String(), defaultLocale.String())

	localized, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		log := logrus.StandardLogger().WithFields(logrus.Fields{
			"type":   "memo/localization",
			"key":    key,
			"locale": locale.String(),
		}).WithError(err)

		// A message missing from locale still comes back in the default locale
		if localized == "" {
			log.Warn("failed to localize message")
			return key
		}
		log.Debug("message not translated")
	}
	return localized
}
