package config

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

var (
	sceneNameTags = []language.Tag{
		language.English,
		language.SimplifiedChinese,
		language.TraditionalChinese,
	}
	sceneNames = []string{
		"Default scene",
		"默认场景",
		"預設場景",
	}
	sceneNameMatcher = language.NewMatcher(sceneNameTags)
)

// DefaultSceneName returns the display name of the default scene for tag.
func DefaultSceneName(tag language.Tag) string {
	_, idx, _ := sceneNameMatcher.Match(tag)
	return sceneNames[idx]
}

// ParseLocale parses a BCP 47 tag or a POSIX locale such as "zh_CN.UTF-8".
// An empty value falls back to LC_ALL, LC_MESSAGES and LANG, then English.
func ParseLocale(s string) language.Tag {
	if s == "" {
		for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
			if v := os.Getenv(env); v != "" {
				s = v
				break
			}
		}
	}
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}
