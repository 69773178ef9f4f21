package wallet

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	witnessIDQuotedRe = regexp.MustCompile(`"id":\s*"(1\.6\.\d+)"`)
	witnessIDBareRe   = regexp.MustCompile(`1\.6\.\d+`)
)

// ExtractWitnessID pulls a witness object id out of raw wallet output.
// Strategies are tried in order of strictness: a parseable single-line
// JSON record with an "id" field, then a quoted "id" anywhere, then any
// bare 1.6.N token. The first hit wins; an empty string means no match.
func ExtractWitnessID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if id, ok := rec["id"].(string); ok && strings.HasPrefix(id, "1.6.") {
			return id
		}
	}
	if m := witnessIDQuotedRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return witnessIDBareRe.FindString(out)
}
