package classifier

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/portent/internal/interfaces"
)

// scorePattern is the marker a backend reply must carry. The first match wins.
var scorePattern = regexp.MustCompile(`score:\s*(-?\d+\.?\d*)`)

const reasonMissingMarker = "no score marker"

// ParseScore extracts the score and the explanation preceding it from a reply.
// A reply without a marker yields a MalformedResponseError and an empty explanation.
// An out-of-range or non-finite score yields a MalformedResponseError but keeps the explanation.
func ParseScore(text string) (float64, string, error) {
	loc := scorePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, "", &interfaces.MalformedResponseError{Reason: reasonMissingMarker}
	}

	explanation := strings.TrimSpace(text[:loc[0]])
	raw := text[loc[2]:loc[3]]

	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, explanation, &interfaces.MalformedResponseError{Reason: fmt.Sprintf("unparseable score %q", raw)}
	}
	if score < -1 || score > 1 {
		return 0, explanation, &interfaces.MalformedResponseError{Reason: fmt.Sprintf("score %s out of range [-1, 1]", raw)}
	}
	return score, explanation, nil
}

func isMissingMarker(err *interfaces.MalformedResponseError) bool {
	return err.Reason == reasonMissingMarker
}
