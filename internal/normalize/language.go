package normalize

import (
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"

	"github.com/forum-corpus-pipeline/internal/models"
)

var platformLanguage = map[string]string{
	models.PlatformZhihu:  "zh",
	models.PlatformV2EX:   "zh",
	models.PlatformReddit: "en",
}

const unknownLanguage = "unknown"

// detectLanguage assigns a language tag: the platform's language when known,
// otherwise the script of the text (Han means zh), otherwise whatlanggo.
func detectLanguage(platform, text string) string {
	if lang, ok := platformLanguage[platform]; ok {
		return lang
	}
	if text == "" {
		return unknownLanguage
	}
	han, letters := 0, 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters > 0 && han*5 >= letters {
		return "zh"
	}
	info := whatlanggo.Detect(text)
	if code := info.Lang.Iso6391(); code != "" && info.Confidence >= 0.5 {
		return code
	}
	return unknownLanguage
}
