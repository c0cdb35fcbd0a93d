package llm

import (
	"context"
	"testing"

	"lifekline-api/internal/pkg/bazi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"fenced with language", "here you go\n```json\n{\"a\":1}\n```\nbye", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":2}\n```", `{"a":2}`},
		{"bare object in prose", "result: {\"a\":3} done", `{"a":3}`},
		{"plain", `{"a":4}`, `{"a":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestParseReportRequiresChartPointsForMain(t *testing.T) {
	_, err := ParseReport(bazi.KindMain, `{"summary":"ok"}`)
	assert.ErrorIs(t, err, ErrMissingChart)

	data, err := ParseReport(bazi.KindMain, "```json\n{\"chartPoints\":[{\"age\":1}]}\n```")
	require.NoError(t, err)
	assert.Len(t, data["chartPoints"], 1)
}

func TestParseReportDeepAnalysis(t *testing.T) {
	data, err := ParseReport(bazi.KindWealth, `{"wealthScore":8}`)
	require.NoError(t, err)
	assert.EqualValues(t, 8, data["wealthScore"])

	_, err = ParseReport(bazi.KindLove, "not json")
	assert.Error(t, err)
}

func TestGenerateWithoutKey(t *testing.T) {
	c := NewClient(Config{Model: "qwen-plus"})
	assert.False(t, c.Available())

	_, err := c.Generate(context.Background(), bazi.KindMain, &bazi.Info{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
