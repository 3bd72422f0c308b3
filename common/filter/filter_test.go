package filter

import (
	"testing"
	"time"

	"github.com/qldp/registry/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func endOfDay(s string) time.Time {
	return day(s).Add(24*time.Hour - time.Microsecond)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01,2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), *r.From)
	assert.Equal(t, endOfDay("2024-02-01"), *r.To)

	r, err = ParseDateRange(",2024-02-01")
	require.NoError(t, err)
	assert.Nil(t, r.From)
	assert.Equal(t, endOfDay("2024-02-01"), *r.To)

	r, err = ParseDateRange("2024-01-01,")
	require.NoError(t, err)
	assert.Nil(t, r.To)

	r, err = ParseDateRange("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-05"), *r.From)
	assert.Equal(t, endOfDay("2024-03-05"), *r.To)

	r, err = ParseDateRange("2024-01-01T10:00:00Z,2024-01-02T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, r.From.Hour())
	assert.Equal(t, 10, r.To.Hour())

	r, err = ParseDateRange("  ")
	require.NoError(t, err)
	assert.True(t, r.IsEmpty())
}

func TestParseDateRange_Invalid(t *testing.T) {
	for _, expr := range []string{
		"2024-02-01,2024-01-01",
		"yesterday,today",
		"2024-01-01,2024-02-01,2024-03-01",
		"2024-13-01",
	} {
		_, err := ParseDateRange(expr)
		assert.ErrorIs(t, err, models.ErrInvalidDateRange, expr)
	}
}

func TestDateRange_Overlaps(t *testing.T) {
	interval := models.DateInterval{From: day("2024-01-10"), To: day("2024-01-20")}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"2024-01-01,2024-01-31", true},
		{"2024-01-15,2024-01-16", true},
		{"2024-01-20,2024-02-01", true},
		{"2024-01-21,2024-02-01", false},
		{",2024-01-09", false},
		{",2024-01-10", true},
		{"2024-01-21,", false},
	}

	for _, tt := range tests {
		r, err := ParseDateRange(tt.expr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.Overlaps(interval), tt.expr)
	}
}

func TestDateRange_DateOnlyCoversWholeDay(t *testing.T) {
	start, err := time.Parse(time.RFC3339, "2024-01-15T10:00:00Z")
	require.NoError(t, err)
	interval := models.DateInterval{From: start, To: start.Add(48 * time.Hour)}

	for _, expr := range []string{"2024-01-15", ",2024-01-15", "2024-01-01,2024-01-15"} {
		r, err := ParseDateRange(expr)
		require.NoError(t, err)
		assert.True(t, r.Overlaps(interval), expr)
	}

	r, err := ParseDateRange(",2024-01-14")
	require.NoError(t, err)
	assert.False(t, r.Overlaps(interval))

	r, err = ParseDateRange(",2024-01-15T09:59:59Z")
	require.NoError(t, err)
	assert.False(t, r.Overlaps(interval))
}

func TestEvaluator_Filter(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	absents := []*models.TempAbsent{
		{ID: 1, Code: "AAAA1111", Reason: "work", PersonID: 1,
			Interval: models.DateInterval{From: day("2024-01-01"), To: day("2024-02-01")}},
		{ID: 2, Code: "BBBB2222", Reason: "study", PersonID: 2, TempResidencePlace: "City Y",
			Interval: models.DateInterval{From: day("2024-05-01"), To: day("2024-06-01")}},
	}

	out, err := e.Filter(`reason == "work"`, absents)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)

	out, err = e.Filter(`from >= timestamp("2024-03-01T00:00:00Z") && place.startsWith("City")`, absents)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)

	out, err = e.Filter(`person_id > 0`, absents)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = e.Filter("", absents)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	assert.Equal(t, 3, e.CacheSize())
}

func TestEvaluator_InvalidExpression(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	_, err = e.Filter(`reason ==`, nil)
	assert.ErrorIs(t, err, models.ErrInvalidFilterExpression)

	_, err = e.Filter(`reason`, nil)
	assert.ErrorIs(t, err, models.ErrInvalidFilterExpression)

	_, err = e.Filter(`unknown_var == 1`, nil)
	assert.ErrorIs(t, err, models.ErrInvalidFilterExpression)
}
