package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestRuleOption(t *testing.T) {
	start := date(2024, 1, 31, 9, 0)
	end := date(2024, 6, 30, 0, 0)

	tests := []struct {
		name string
		rule RecurrenceRule
		want rrule.ROption
	}{
		{
			name: "daily drops weekdays",
			rule: RecurrenceRule{Frequency: FrequencyDaily, Interval: 2, DaysOfWeek: []time.Weekday{time.Monday}},
			want: rrule.ROption{Freq: rrule.DAILY, Interval: 2},
		},
		{
			name: "weekly sorts weekdays",
			rule: RecurrenceRule{Frequency: FrequencyWeekly, DaysOfWeek: []time.Weekday{time.Friday, time.Monday}, Count: 6},
			want: rrule.ROption{Freq: rrule.WEEKLY, Interval: 1, Count: 6, Byweekday: []rrule.Weekday{rrule.MO, rrule.FR}},
		},
		{
			name: "monthly defaults to the anchor day",
			rule: RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1},
			want: rrule.ROption{Freq: rrule.MONTHLY, Interval: 1, Bymonthday: []int{31}},
		},
		{
			name: "yearly with explicit month and day",
			rule: RecurrenceRule{Frequency: FrequencyYearly, Interval: 1, MonthOfYear: time.February, DayOfMonth: 29},
			want: rrule.ROption{Freq: rrule.YEARLY, Interval: 1, Bymonth: []int{2}, Bymonthday: []int{29}},
		},
		{
			name: "end date is inclusive",
			rule: RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, EndDate: &end},
			want: rrule.ROption{Freq: rrule.DAILY, Interval: 1, Until: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RuleOption(tt.rule, start)
			require.NoError(t, err)

			tt.want.Dtstart = start
			tt.want.Wkst = rrule.MO
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown frequency", func(t *testing.T) {
		_, err := RuleOption(RecurrenceRule{Frequency: "hourly"}, start)
		assert.ErrorIs(t, err, ErrUnknownFrequency)
	})
}

func TestGenerateOccurrences_KeepsSubSecondStart(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 500, time.UTC)
	ev := series(RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, Count: 2}, start, time.Hour)

	got := GenerateOccurrences(ev, date(2024, 1, 1, 0, 0), date(2024, 1, 3, 0, 0))

	require.Len(t, got, 2)
	assert.True(t, start.AddDate(0, 0, 1).Equal(got[1].StartsAt), got[1].StartsAt)
}
