package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
)

const (
	firstURL  = "https://a.example/1"
	secondURL = "https://a.example/2"
)

func TestExtractBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced with language tag",
			raw:  "Here you go:\n```json\n{\"items\":[]}\n```\nThanks!",
			want: `{"items":[]}`,
		},
		{
			name: "unterminated fence",
			raw:  "```json\n{\"items\":[]}",
			want: `{"items":[]}`,
		},
		{
			name: "prose around object",
			raw:  `Sure. {"items":[{"url":"x"}]} Let me know.`,
			want: `{"items":[{"url":"x"}]}`,
		},
		{
			name: "no closing brace",
			raw:  `Result: {"items":[{"url":"x"`,
			want: `{"items":[{"url":"x"`,
		},
		{
			name: "top-level array kept whole",
			raw:  "```json\n[{\"url\":\"x\"},{\"url\":\"y\"}]\n```",
			want: `[{"url":"x"},{"url":"y"}]`,
		},
		{
			name: "no object",
			raw:  "  nothing here  ",
			want: "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBlock(tt.raw))
		})
	}
}

func TestRepairStructure(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "raw newline", in: "{\"a\":\"x\ny\"}", want: `{"a":"x\ny"}`},
		{name: "raw tab", in: "{\"a\":\"x\ty\"}", want: `{"a":"x\ty"}`},
		{name: "stray quotes", in: `{"a":"he said "yes" today"}`, want: `{"a":"he said \"yes\" today"}`},
		{name: "trailing commas", in: `{"a":[1,2, ],}`, want: `{"a":[1,2 ]}`},
		{name: "invalid escape", in: `{"a":"C:\path"}`, want: `{"a":"C:\\path"}`},
		{name: "valid escapes kept", in: `{"a":"q\"\n\u00e9"}`, want: `{"a":"q\"\n\u00e9"}`},
		{name: "comma inside string kept", in: `{"a":"x,]"}`, want: `{"a":"x,]"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairStructure(tt.in)

			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output must be valid JSON: %s", got)
		})
	}
}

func TestAutoClose(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "open array", in: `{"a":[1,2`, want: `{"a":[1,2]}`},
		{name: "open string", in: `{"a":"b`, want: `{"a":"b"}`},
		{name: "dangling comma", in: `{"a":1, `, want: `{"a":1}`},
		{name: "dangling colon", in: `{"a":`, want: `{"a":null}`},
		{name: "dangling key", in: `{"a":1,"b"`, want: `{"a":1,"b":null}`},
		{name: "cut escape", in: `{"a":"x\`, want: `{"a":"x"}`},
		{name: "already closed", in: `{"a":[{"b":"c"}]}`, want: `{"a":[{"b":"c"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoClose(tt.in)

			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "closed output must be valid JSON: %s", got)
		})
	}
}

func TestParseDirect(t *testing.T) {
	raw := "```json\n{\"items\":[{\"url\":\"https://a.example/1/\",\"summary\":\"Hello.\"}]}\n```"

	result, tier, err := Parse(raw, []string{firstURL})

	require.NoError(t, err)
	assert.Equal(t, TierDirect, tier)
	assert.Equal(t, Result{firstURL: "Hello."}, result)
}

func TestParseRepairsRawNewline(t *testing.T) {
	raw := "{\"items\":[{\"url\":\"" + firstURL + "\",\"summary\":\"Line one\nLine two\"}]}"

	result, tier, err := Parse(raw, []string{firstURL})

	require.NoError(t, err)
	assert.Equal(t, TierRepaired, tier)
	assert.Equal(t, "Line one\nLine two", result[firstURL])
}

func TestParseRepairsStrayQuotes(t *testing.T) {
	raw := `{"items":[{"url":"` + firstURL + `","summary":"He said "yes" today."},]}`

	result, tier, err := Parse(raw, []string{firstURL})

	require.NoError(t, err)
	assert.Equal(t, TierRepaired, tier)
	assert.Equal(t, `He said "yes" today.`, result[firstURL])
}

func TestParseClosesTruncatedOutput(t *testing.T) {
	raw := `{"items":[{"url":"` + firstURL + `","summary":"First."},{"url":"` + secondURL + `","summary":"Second is cut`

	result, tier, err := Parse(raw, []string{firstURL, secondURL})

	require.NoError(t, err)
	assert.Equal(t, TierClosed, tier)
	assert.Equal(t, "First.", result[firstURL])
	assert.Equal(t, "Second is cut", result[secondURL])
}

func TestParsePatternTier(t *testing.T) {
	raw := `Summaries follow.
"url": "https://a.example/1?utm_source=feed", "summary": "Alpha \"quoted\" text." ;;
"url": "https://other.example/ignored", "summary": "Not requested."
"url": "` + secondURL + `" => "summary": "Beta\u00e9."`

	result, tier, err := Parse(raw, []string{firstURL, secondURL})

	require.NoError(t, err)
	assert.Equal(t, TierPattern, tier)
	assert.Equal(t, Result{
		firstURL:  `Alpha "quoted" text.`,
		secondURL: "Beta\u00e9.",
	}, result)
}

func TestExtractSummariesStopsAtNextURL(t *testing.T) {
	raw := `"url": "` + firstURL + `", "title": "no summary here",
"url": "` + secondURL + `", "summary": "Belongs to the second."`

	result := ExtractSummaries(raw, []string{firstURL, secondURL})

	assert.Equal(t, Result{secondURL: "Belongs to the second."}, result)
}

func TestParseAcceptsResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "bare object",
			raw:  `{"url": "` + firstURL + `", "summary": "Single object."}`,
		},
		{
			name: "top-level array",
			raw:  `[{"url": "` + firstURL + `", "summary": "Single object."}]`,
		},
		{
			name: "fenced top-level array",
			raw:  "```json\n[{\"url\": \"" + firstURL + "\", \"summary\": \"Single object.\"}]\n```",
		},
		{
			name: "array under another key",
			raw:  `{"results": [{"url": "` + firstURL + `", "summary": "Single object."}]}`,
		},
		{
			name: "citation before object",
			raw:  `See [1]. {"items":[{"url":"` + firstURL + `","summary":"Single object."}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, tier, err := Parse(tt.raw, []string{firstURL})

			require.NoError(t, err)
			assert.Equal(t, TierDirect, tier)
			assert.Equal(t, Result{firstURL: "Single object."}, result)
		})
	}
}

func TestParseValidJSONWithoutRequestedURLFallsThrough(t *testing.T) {
	raw := `{"note":"ok"} and then "url": "` + firstURL + `", "summary": "Recovered."`

	result, tier, err := Parse(raw, []string{firstURL})

	require.NoError(t, err)
	assert.Equal(t, TierPattern, tier)
	assert.Equal(t, Result{firstURL: "Recovered."}, result)
}

func TestParseEmptyDocumentIsFailure(t *testing.T) {
	result, tier, err := Parse(`{"items":[]}`, []string{firstURL})

	require.ErrorIs(t, err, coreerrors.ErrParseFailure)
	assert.Equal(t, TierNone, tier)
	assert.Nil(t, result)
}

func TestParseFailure(t *testing.T) {
	result, tier, err := Parse("I'm sorry, I cannot summarize these articles.", []string{firstURL})

	require.ErrorIs(t, err, coreerrors.ErrParseFailure)
	assert.Equal(t, TierNone, tier)
	assert.Nil(t, result)
}
