package cycle

import (
	"testing"
	"time"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestPreviousWeekday(t *testing.T) {
	loc := warsaw(t)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "Given a Wednesday When looking for Saturday 01:00 Then returns last Saturday",
			now:  time.Date(2026, 10, 14, 15, 30, 0, 0, loc),
			want: time.Date(2026, 10, 10, 1, 0, 0, 0, loc),
		},
		{
			name: "Given Saturday after the hour When looking for Saturday 01:00 Then returns today",
			now:  time.Date(2026, 10, 17, 9, 0, 0, 0, loc),
			want: time.Date(2026, 10, 17, 1, 0, 0, 0, loc),
		},
		{
			name: "Given Saturday before the hour When looking for Saturday 01:00 Then returns previous Saturday",
			now:  time.Date(2026, 10, 17, 0, 30, 0, 0, loc),
			want: time.Date(2026, 10, 10, 1, 0, 0, 0, loc),
		},
		{
			name: "Given exactly the anchor When looking for Saturday 01:00 Then returns the anchor",
			now:  time.Date(2026, 10, 17, 1, 0, 0, 0, loc),
			want: time.Date(2026, 10, 17, 1, 0, 0, 0, loc),
		},
		{
			name: "Given a Friday When looking for Saturday 01:00 Then returns six days back",
			now:  time.Date(2026, 10, 23, 23, 0, 0, 0, loc),
			want: time.Date(2026, 10, 17, 1, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreviousWeekday(tt.now, time.Saturday, 1, loc)
			if !got.Equal(tt.want) {
				t.Errorf("PreviousWeekday = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekAcrossDST(t *testing.T) {
	loc := warsaw(t)
	// DST ends on 2026-10-25 in Europe/Warsaw
	c := New(Settings{Location: loc, WeekStartWeekday: time.Saturday, WeekStartHour: 1}, &FixedClock{T: time.Date(2026, 10, 26, 12, 0, 0, 0, loc)})

	w := c.CurrentWeek()
	wantStart := time.Date(2026, 10, 24, 1, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 10, 31, 1, 0, 0, 0, loc)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Errorf("week = %v, want [%v, %v)", w, wantStart, wantEnd)
	}
	if w.Start.Location() != time.UTC {
		t.Errorf("week bounds should be stored in UTC")
	}
}

func TestWeekContainsIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	w := WeekStarting(start)

	if !w.Contains(start) {
		t.Error("start must be inside the week")
	}
	if w.Contains(w.End) {
		t.Error("end must be outside the week")
	}
	if w.Contains(start.Add(-time.Second)) {
		t.Error("a moment before start must be outside the week")
	}
}

func TestOrderingOpen(t *testing.T) {
	loc := warsaw(t)
	settings := DefaultSettings()
	settings.Location = loc

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"Given Saturday 11:59 When checking Then closed", time.Date(2026, 10, 17, 11, 59, 0, 0, loc), false},
		{"Given Saturday 12:00 When checking Then open", time.Date(2026, 10, 17, 12, 0, 0, 0, loc), true},
		{"Given Monday 19:59 When checking Then open", time.Date(2026, 10, 19, 19, 59, 0, 0, loc), true},
		{"Given Monday 20:00 When checking Then closed", time.Date(2026, 10, 19, 20, 0, 0, 0, loc), false},
		{"Given Wednesday When checking Then closed", time.Date(2026, 10, 21, 10, 0, 0, 0, loc), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(settings, &FixedClock{T: tt.now})
			if got := c.OrderingOpen(); got != tt.want {
				t.Errorf("OrderingOpen = %v, want %v", got, tt.want)
			}
		})
	}

	settings.AlwaysOpen = true
	c := New(settings, &FixedClock{T: time.Date(2026, 10, 21, 10, 0, 0, 0, loc)})
	if !c.OrderingOpen() {
		t.Error("AlwaysOpen must keep the window open")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"saturday", time.Saturday, false},
		{" Monday ", time.Monday, false},
		{"3", time.Saturday, false},
		{"1", time.Monday, false},
		{"7", time.Tuesday, false},
		{"2", time.Sunday, false},
		{"8", 0, true},
		{"someday", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
