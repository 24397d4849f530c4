package realtime

import (
	"regexp"
	"strings"
)

var (
	mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]{1,32})`)
	hashtagRe = regexp.MustCompile(`#([A-Za-z0-9_]{1,64})`)
)

// ExtractMentions returns the distinct usernames mentioned in text, lowercased
// (username lookup is case-insensitive) and in order of first appearance.
func ExtractMentions(text string) []string {
	return extractUnique(mentionRe, text)
}

// ExtractHashtags returns the distinct hashtags in text, lowercased, in order
// of first appearance.
func ExtractHashtags(text string) []string {
	return extractUnique(hashtagRe, text)
}

func extractUnique(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
