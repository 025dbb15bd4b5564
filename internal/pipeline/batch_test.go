package pipeline

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histeq/internal/metrics"
)

func TestSplitEnhancedName(t *testing.T) {
	cases := []struct {
		name   string
		stem   string
		method string
		ok     bool
	}{
		{"pier_ghe.png", "pier", "ghe", true},
		{"pier_clahe.png", "pier", "clahe", true},
		{"pier_clahe_clip2_tile8.png", "pier", "clahe", true},
		{"low_light_scene_ghe.jpg", "low_light_scene", "ghe", true},
		{"pier.png", "", "", false},
		{"_ghe.png", "", "", false},
		{"pier_gherkin.png", "", "", false},
	}

	for _, tc := range cases {
		stem, method, ok := splitEnhancedName(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.stem, stem, tc.name)
			assert.Equal(t, tc.method, method, tc.name)
		}
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "inf", formatValue(math.Inf(1)))
	assert.Equal(t, "-inf", formatValue(math.Inf(-1)))
	assert.Equal(t, "nan", formatValue(math.NaN()))
	assert.Equal(t, "1.500000", formatValue(1.5))
}

func syntheticRows() []Row {
	values := make(map[string]float64, len(metrics.ReportKeys))
	for _, key := range metrics.ReportKeys {
		values[key] = 0.5
	}
	values["psnr"] = math.Inf(1)

	return []Row{
		{
			Image:  "pier",
			Method: "ghe",
			Report: &metrics.Report{Method: "ghe", Values: values},
		},
		{
			Image:  "pier",
			Method: "clahe",
			Report: &metrics.Report{Method: "clahe", Values: values, OverEnhanced: true},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(syntheticRows(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, "image", header[0])
	assert.Equal(t, "method", header[1])
	assert.Equal(t, "over_enhanced", header[len(header)-1])
	assert.Len(t, header, len(metrics.ReportKeys)+3)

	assert.Equal(t, "pier", records[1][0])
	assert.Equal(t, "inf", records[1][2]) // psnr column
	assert.Equal(t, "false", records[1][len(header)-1])
	assert.Equal(t, "true", records[2][len(header)-1])
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(syntheticRows(), &buf))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "IMAGE")
	assert.Contains(t, out, "pier")
	assert.Contains(t, out, "inf")
}
