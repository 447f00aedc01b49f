package enrichment

import "strings"

// errorPagePhrases identify pages served in place of the article: script
// walls, bot checks and temporary outages.
var errorPagePhrases = []string{
	"enable javascript",
	"javascript is required",
	"javascript is disabled",
	"please turn on javascript",
	"checking your browser",
	"are you a robot",
	"verify you are human",
	"access denied",
	"temporarily unavailable",
	"service unavailable",
	"site is under maintenance",
	"too many requests",
}

// errorPageScanLimit bounds the scan; error pages say so near the top.
const errorPageScanLimit = 2000

// isErrorPage reports whether fetched text is a provider error page.
func isErrorPage(text string) bool {
	if len(text) > errorPageScanLimit {
		text = text[:errorPageScanLimit]
	}

	lower := strings.ToLower(text)

	for _, phrase := range errorPagePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	return false
}
