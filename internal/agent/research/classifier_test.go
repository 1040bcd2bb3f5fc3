package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pad(s string) string {
	return s + " " + strings.Repeat("lorem ipsum ", 12)
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"short with keywords", "Abstract. Methods. Results. Conclusion.", false},
		{"99 runes", strings.Repeat("a", 89) + " abstract", false},
		{"blank", strings.Repeat(" ", 150), false},
		{"references page", pad("References\n[1] Smith. Results of a study. Methodology."), false},
		{"references case insensitive", pad("REFERENCES and discussion"), false},
		{"references after whitespace", pad("\n\n  references: methods"), false},
		{"abstract", pad("Abstract: We study X."), true},
		{"methodological", pad("A methodological note"), true},
		{"materials and methods", pad("Materials   and Methods"), true},
		{"findings", pad("Key Findings"), true},
		{"future work", pad("Future\nwork will address"), true},
		{"references mid text", pad("Discussion of the references section"), true},
		{"no keyword", pad("Table 3 lists the coefficients"), false},
		{"partial word only", pad("Methodologist resultant summaryish"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevant(tt.text))
		})
	}
}

func TestIsRelevant_CountsRunes(t *testing.T) {
	// 60 runes but 120+ bytes
	text := "abstract " + strings.Repeat("é", 51)
	assert.False(t, IsRelevant(text))
	assert.True(t, IsRelevantWithMin(text, 50))
}
