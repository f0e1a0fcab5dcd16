package recur

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tidings-app/tidings/internal/models"
)

func TestRRuleString(t *testing.T) {
	tests := []struct {
		name    string
		freq    *models.Frequency
		endDate string
		want    string
	}{
		{
			name: "plain daily",
			freq: &models.Frequency{Type: models.FrequencyDaily, Interval: 1},
			want: "FREQ=DAILY",
		},
		{
			name: "weekly with days",
			freq: &models.Frequency{Type: models.FrequencyWeekly, Interval: 1, DaysOfWeek: []int{5, 1}},
			want: "FREQ=WEEKLY;BYDAY=MO,FR",
		},
		{
			name: "weekly including sunday",
			freq: &models.Frequency{Type: models.FrequencyWeekly, Interval: 2, DaysOfWeek: []int{3, 0}},
			want: "FREQ=WEEKLY;INTERVAL=2;BYDAY=SU,WE",
		},
		{
			name: "monthly",
			freq: &models.Frequency{Type: models.FrequencyMonthly, Interval: 1, DaysOfMonth: []int{15, 1}},
			want: "FREQ=MONTHLY;BYMONTHDAY=1,15",
		},
		{
			name: "yearly with month filter",
			freq: &models.Frequency{Type: models.FrequencyYearly, Interval: 1, MonthsOfYear: []int{12}},
			want: "FREQ=YEARLY;BYMONTH=12",
		},
		{
			name:    "with end date",
			freq:    &models.Frequency{Type: models.FrequencyDaily, Interval: 3},
			endDate: "2024-12-31",
			want:    "FREQ=DAILY;INTERVAL=3;UNTIL=20241231T235959Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RRuleString(tt.freq, tt.endDate)
			if err != nil {
				t.Fatalf("RRuleString error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("RRuleString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRRuleStringUnknownType(t *testing.T) {
	if _, err := RRuleString(&models.Frequency{Type: "hourly", Interval: 1}, ""); err == nil {
		t.Fatal("RRuleString(hourly) = nil error, want failure")
	}
}

func TestFrequencyFromRRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		want    *models.Frequency
		wantEnd string
	}{
		{
			name: "weekly with prefix",
			rule: "RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
			want: &models.Frequency{Type: models.FrequencyWeekly, Interval: 1, DaysOfWeek: []int{1, 3}},
		},
		{
			name: "weekly sunday",
			rule: "FREQ=WEEKLY;BYDAY=SU",
			want: &models.Frequency{Type: models.FrequencyWeekly, Interval: 1, DaysOfWeek: []int{0}},
		},
		{
			name: "monthly with interval",
			rule: "FREQ=MONTHLY;INTERVAL=2;BYMONTHDAY=31",
			want: &models.Frequency{Type: models.FrequencyMonthly, Interval: 2, DaysOfMonth: []int{31}},
		},
		{
			name:    "daily with until",
			rule:    "FREQ=DAILY;UNTIL=20241231T235959Z",
			want:    &models.Frequency{Type: models.FrequencyDaily, Interval: 1},
			wantEnd: "2024-12-31",
		},
		{
			name: "yearly with month",
			rule: "FREQ=YEARLY;BYMONTH=12",
			want: &models.Frequency{Type: models.FrequencyYearly, Interval: 1, MonthsOfYear: []int{12}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, end, err := FrequencyFromRRule(tt.rule)
			if err != nil {
				t.Fatalf("FrequencyFromRRule(%q) error: %v", tt.rule, err)
			}
			if end != tt.wantEnd {
				t.Fatalf("end date = %q, want %q", end, tt.wantEnd)
			}
			normalize(got)
			normalize(tt.want)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FrequencyFromRRule(%q) = %+v, want %+v", tt.rule, got, tt.want)
			}
		})
	}
}

// normalize clears nil-vs-empty slice differences before DeepEqual.
func normalize(f *models.Frequency) {
	if len(f.DaysOfWeek) == 0 {
		f.DaysOfWeek = nil
	}
	if len(f.DaysOfMonth) == 0 {
		f.DaysOfMonth = nil
	}
	if len(f.MonthsOfYear) == 0 {
		f.MonthsOfYear = nil
	}
}

func TestFrequencyFromRRuleRejects(t *testing.T) {
	tests := []struct {
		name string
		rule string
		want string
	}{
		{"count", "FREQ=DAILY;COUNT=10", "COUNT"},
		{"hourly", "FREQ=HOURLY", "unsupported"},
		{"weekly without byday", "FREQ=WEEKLY", "BYDAY"},
		{"monthly without monthday", "FREQ=MONTHLY", "BYMONTHDAY"},
		{"negative monthday", "FREQ=MONTHLY;BYMONTHDAY=-1", "negative"},
		{"garbage", "FREQ=SOMETIMES", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := FrequencyFromRRule(tt.rule)
			if err == nil {
				t.Fatalf("FrequencyFromRRule(%q) = nil error, want failure", tt.rule)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRRuleRoundTrip(t *testing.T) {
	orig := &models.Frequency{
		Type:       models.FrequencyWeekly,
		Interval:   2,
		DaysOfWeek: []int{1, 5},
	}
	rule, err := RRuleString(orig, "2025-06-30")
	if err != nil {
		t.Fatalf("RRuleString error: %v", err)
	}
	back, end, err := FrequencyFromRRule(rule)
	if err != nil {
		t.Fatalf("FrequencyFromRRule(%q) error: %v", rule, err)
	}
	normalize(back)
	if !reflect.DeepEqual(back, orig) {
		t.Fatalf("round trip = %+v, want %+v", back, orig)
	}
	if end != "2025-06-30" {
		t.Fatalf("round trip end date = %q, want 2025-06-30", end)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		freq *models.Frequency
		want string
	}{
		{nil, "once"},
		{&models.Frequency{Type: models.FrequencyDaily, Interval: 1}, "every day"},
		{&models.Frequency{Type: models.FrequencyWeekly, Interval: 2, DaysOfWeek: []int{1, 5}}, "every 2 weeks on Mon, Fri"},
		{&models.Frequency{Type: models.FrequencyMonthly, Interval: 1, DaysOfMonth: []int{1, 15}}, "every month on day 1,15"},
		{&models.Frequency{Type: models.FrequencyYearly, Interval: 1}, "every year"},
	}
	for _, tt := range tests {
		if got := Describe(tt.freq); got != tt.want {
			t.Errorf("Describe(%+v) = %q, want %q", tt.freq, got, tt.want)
		}
	}
}
