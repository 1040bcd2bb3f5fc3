package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		Title:       "Employee Satisfaction and Productivity",
		Variables:   "Employee satisfaction;Productivity",
		Theories:    "Herzberg's Two-Factor Theory",
		Hypotheses:  "Job satisfaction positively impacts productivity",
		Methodology: "Survey research",
		Datasets:    "200 employees in IT sector",
		Results:     "Strong correlation found",
		Limitation:  "Small sample size;Only one sector",
	}
}

func TestRecord_TSVRoundTrip(t *testing.T) {
	rec := sampleRecord()

	line, err := rec.MarshalTSV()
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(line, "\t"))
	assert.False(t, strings.HasSuffix(line, "\n"))

	got, err := UnmarshalTSV(line)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecord_TSVRoundTripQuotedField(t *testing.T) {
	rec := sampleRecord()
	rec.Results = `"strong" effect`

	line, err := rec.MarshalTSV()
	require.NoError(t, err)

	got, err := UnmarshalTSV(line)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordFromFields_WrongCount(t *testing.T) {
	_, err := RecordFromFields([]string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldCount))
}

func TestEmptyRecord(t *testing.T) {
	rec := EmptyRecord()
	for _, f := range rec.Fields() {
		assert.Equal(t, NotFound, f)
	}
	assert.False(t, rec.HasTitle())
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(""))
	assert.True(t, IsSentinel("  "))
	assert.True(t, IsSentinel("Not Found"))
	assert.True(t, IsSentinel(" Not Found "))
	assert.False(t, IsSentinel("not found yet"))
}

func TestHeaderTSV(t *testing.T) {
	assert.Equal(t,
		"Title\tVariables\tTheories\tHypotheses\tMethodology\tDataset(s)\tResults\tLimitation",
		HeaderTSV())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusEmpty, ParseStatus("empty"))
	assert.Equal(t, StatusRunning, ParseStatus("active"))
	assert.Equal(t, StatusPending, ParseStatus("???"))
}
