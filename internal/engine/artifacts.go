package engine

import (
	"regexp"
	"strings"
)

// artifactURLPattern matches generated media links that must survive into
// the final reply even if a later round paraphrases them away.
var artifactURLPattern = regexp.MustCompile(`https?://[^\s<>"')]+\.(?:png|jpe?g|gif|webp|mp4)(?:\?[^\s<>"')]*)?`)

// ExtractArtifacts pulls artifact URLs from tool output, in order of first
// appearance without duplicates.
func ExtractArtifacts(text string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range artifactURLPattern.FindAllString(text, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// ReattachArtifacts appends any artifact URLs missing from the reply.
func ReattachArtifacts(reply string, artifacts []string) string {
	var missing []string
	for _, u := range artifacts {
		if !strings.Contains(reply, u) {
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return reply
	}
	if reply == "" {
		return strings.Join(missing, "\n")
	}
	return reply + "\n" + strings.Join(missing, "\n")
}
