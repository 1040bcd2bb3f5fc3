package research

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/feichai0017/paper-extractor/internal/models"
)

// ErrInvalidResponse means no line of a model answer has the record shape.
var ErrInvalidResponse = errors.New("response has no line with 8 tab-separated fields")

const minTabs = models.FieldCount - 1

// IsValid reports whether some non-blank line of response carries at least
// seven tabs. Extra trailing fields are tolerated and an echoed header row
// does not count.
func IsValid(response string) bool {
	_, ok := qualifyingLine(response)
	return ok
}

func qualifyingLine(response string) (string, bool) {
	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, "\t") >= minTabs && !isHeaderLine(line) {
			return strings.Trim(line, "\r "), true
		}
	}
	return "", false
}

// isHeaderLine reports whether line is the column header echoed back from
// the prompt.
func isHeaderLine(line string) bool {
	fields := strings.Split(strings.Trim(line, "\r \""), "\t")
	if len(fields) < models.FieldCount {
		return false
	}
	for i, col := range models.Columns {
		if !strings.EqualFold(strings.Trim(fields[i], " \""), col) {
			return false
		}
	}
	return true
}

// ParseResponse turns the first qualifying line into a normalised record.
func ParseResponse(response string) (models.Record, error) {
	line, ok := qualifyingLine(response)
	if !ok {
		return models.Record{}, ErrInvalidResponse
	}

	fields := splitLine(line)
	if len(fields) < models.FieldCount {
		return models.Record{}, fmt.Errorf("%w: got %d fields", ErrInvalidResponse, len(fields))
	}

	fields = fields[:models.FieldCount]
	for i := range fields {
		if i == 0 {
			fields[i] = normalizeTitle(fields[i])
			continue
		}
		fields[i] = NormalizeField(fields[i])
	}
	return models.RecordFromFields(fields)
}

// splitLine reads line with TSV quoting. Models sometimes echo the prompt
// example and wrap the whole row in one pair of quotes; that wrapper is
// dropped before retrying.
func splitLine(line string) []string {
	if fields, err := models.ParseTSV(line); err == nil && len(fields) >= models.FieldCount {
		return fields
	}
	if len(line) >= 2 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
		inner := line[1 : len(line)-1]
		if fields, err := models.ParseTSV(inner); err == nil && len(fields) >= models.FieldCount {
			return fields
		}
		line = inner
	}
	return strings.Split(line, "\t")
}

// NormalizeField splits v on ';', trims and deduplicates the parts and drops
// sentinels. An empty result becomes NotFound.
func NormalizeField(v string) string {
	return joinValues(appendValues(nil, map[string]struct{}{}, v))
}

func normalizeTitle(v string) string {
	v = strings.TrimSpace(strings.Trim(strings.TrimSpace(v), `"`))
	if models.IsSentinel(v) {
		return models.NotFound
	}
	return v
}

func appendValues(out []string, seen map[string]struct{}, v string) []string {
	for _, part := range strings.Split(v, models.MultiValueSeparator) {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"`))
		if models.IsSentinel(part) {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func joinValues(values []string) string {
	if len(values) == 0 {
		return models.NotFound
	}
	return strings.Join(values, models.MultiValueSeparator)
}

// Sample returns at most n runes of s for logging.
func Sample(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
