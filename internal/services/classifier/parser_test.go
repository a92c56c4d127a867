package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/portent/internal/interfaces"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantScore   float64
		wantExpl    string
		wantErr     bool
		missingMark bool
	}{
		{"plain", "Things look grim.\nscore:-0.42", -0.42, "Things look grim.", false, false},
		{"space after colon", "Hopeful.  score: 0.3 ", 0.3, "Hopeful.", false, false},
		{"integer", "Doom.\nscore:-1", -1, "Doom.", false, false},
		{"trailing dot", "ok score:1.", 1, "ok", false, false},
		{"first marker wins", "a score:0.1 b score:0.9", 0.1, "a", false, false},
		{"text after marker ignored", "why\nscore:0.25\nthanks", 0.25, "why", false, false},
		{"no explanation", "score:0.5", 0.5, "", false, false},
		{"missing marker", "I cannot rate this.", 0, "", true, true},
		{"capitalised marker", "Score: 0.5", 0, "", true, true},
		{"out of range high", "Rapture.\nscore:1.5", 0, "Rapture.", true, false},
		{"out of range low", "End.\nscore:-2", 0, "End.", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, explanation, err := ParseScore(tt.input)
			assert.Equal(t, tt.wantExpl, explanation)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.InDelta(t, tt.wantScore, score, 1e-9)
				return
			}

			var malformed *interfaces.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.missingMark, isMissingMarker(malformed))
		})
	}
}
