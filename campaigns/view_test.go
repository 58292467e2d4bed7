package campaigns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/campaignpulse/errors"
)

func fixtureList() []Campaign {
	start := func(day int) *time.Time {
		t := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return []Campaign{
		{ID: "3", Name: "spring sale", Status: StatusActive, DailyBudget: 250, StartTime: start(10)},
		{ID: "1", Name: "Brand Awareness", Status: StatusPaused, DailyBudget: 90},
		{ID: "2", Name: "Holiday Push", Status: StatusArchived, DailyBudget: 500, StartTime: start(1)},
		{ID: "4", Name: "Spring Retarget", Status: StatusActive, DailyBudget: 90, StartTime: start(5)},
	}
}

func ids(list []Campaign) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"zero filter", Filter{}, []string{"3", "1", "2", "4"}},
		{"status", Filter{Status: "ACTIVE"}, []string{"3", "4"}},
		{"query", Filter{Query: "spring"}, []string{"3", "4"}},
		{"query by id", Filter{Query: "2"}, []string{"2"}},
		{"both", Filter{Status: "paused", Query: "spring"}, []string{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ids(test.filter.Apply(fixtureList())))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		field    SortField
		desc     bool
		expected []string
	}{
		{"name", SortByName, false, []string{"1", "2", "4", "3"}},
		{"name desc", SortByName, true, []string{"3", "4", "2", "1"}},
		{"budget ties by id", SortByBudget, false, []string{"1", "4", "3", "2"}},
		{"start unset last", SortByStart, false, []string{"2", "4", "3", "1"}},
		{"status", SortByStatus, false, []string{"3", "4", "2", "1"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			list := fixtureList()
			Sort(list, test.field, test.desc)
			assert.Equal(t, test.expected, ids(list))
		})
	}
}

func TestParseSortField(t *testing.T) {
	field, desc, err := ParseSortField("-budget")
	require.NoError(t, err)
	assert.Equal(t, SortByBudget, field)
	assert.True(t, desc)

	field, desc, err = ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByName, field)
	assert.False(t, desc)

	_, _, err = ParseSortField("clicks")
	assert.True(t, errors.IsInvalid(err))
}
