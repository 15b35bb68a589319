package scanner

import (
	"strings"
	"testing"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/types"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	// Late afternoon, so any time-of-day leakage would skew the buckets.
	today := time.Date(2026, 8, 29, 16, 45, 0, 0, time.UTC)

	cases := []struct {
		name     string
		endDate  time.Time
		emit     bool
		priority string
		label    string
		diffDays int
	}{
		{name: "due today", endDate: today, emit: true, priority: types.PriorityHigh, label: "due today", diffDays: 0},
		{name: "due today early morning", endDate: time.Date(2026, 8, 29, 0, 30, 0, 0, time.UTC), emit: true, priority: types.PriorityHigh, label: "due today", diffDays: 0},
		{name: "overdue yesterday", endDate: today.AddDate(0, 0, -1), emit: true, priority: types.PriorityCritical, label: "overdue", diffDays: -1},
		{name: "overdue last month", endDate: today.AddDate(0, -1, 0), emit: true, priority: types.PriorityCritical, label: "overdue", diffDays: -31},
		{name: "approaching in two days", endDate: today.AddDate(0, 0, 2), emit: true, priority: types.PriorityHigh, label: "approaching", diffDays: 2},
		{name: "approaching window edge", endDate: today.AddDate(0, 0, 3), emit: true, priority: types.PriorityHigh, label: "approaching", diffDays: 3},
		{name: "just outside window", endDate: today.AddDate(0, 0, 4), emit: false},
		{name: "far future", endDate: today.AddDate(0, 0, 10), emit: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.endDate, today)

			if ok != tc.emit {
				t.Fatalf("Classify emit = %v, want %v", ok, tc.emit)
			}
			if !tc.emit {
				return
			}

			if got.Priority != tc.priority {
				t.Fatalf("priority = %q, want %q", got.Priority, tc.priority)
			}
			if got.Label != tc.label {
				t.Fatalf("label = %q, want %q", got.Label, tc.label)
			}
			if got.DiffDays != tc.diffDays {
				t.Fatalf("diffDays = %d, want %d", got.DiffDays, tc.diffDays)
			}
		})
	}
}

func TestClassifyAcrossDaylightSavingShift(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// US DST starts 2026-03-08; local midnights on either side are only
	// 23h apart, so naive hour division undercounts the day gap.
	now := time.Date(2026, 3, 6, 15, 0, 0, 0, loc)

	fourDays := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	if _, ok := Classify(fourDays, now); ok {
		t.Fatal("four calendar days out must not emit, even across the DST shift")
	}

	threeDays := time.Date(2026, 3, 9, 9, 0, 0, 0, loc)
	got, ok := Classify(threeDays, now)
	if !ok {
		t.Fatal("three calendar days out must emit")
	}
	if got.DiffDays != 3 || got.Label != "approaching" {
		t.Fatalf("got diffDays=%d label=%q, want 3 approaching", got.DiffDays, got.Label)
	}
}

func TestBuildNotification(t *testing.T) {
	project := models.Project{
		Model:     gorm.Model{ID: 12},
		Name:      "Plant Retrofit",
		ManagerID: 7,
	}

	overdue, _ := Classify(time.Now().AddDate(0, 0, -2), time.Now())
	n := buildNotification(project, overdue)

	if n.UserID != 7 {
		t.Fatalf("owner = %d, want 7", n.UserID)
	}
	if n.Type != types.NotificationDeadline {
		t.Fatalf("type = %q, want deadline", n.Type)
	}
	if n.Priority != types.PriorityCritical {
		t.Fatalf("priority = %q, want critical", n.Priority)
	}
	if n.Link != "/projects/12" {
		t.Fatalf("link = %q, want /projects/12", n.Link)
	}
	if !strings.Contains(n.Message, "overdue by 2 day(s)") {
		t.Fatalf("unexpected message %q", n.Message)
	}

	dueToday, _ := Classify(time.Now(), time.Now())
	n = buildNotification(project, dueToday)
	if !strings.Contains(n.Message, "due today") {
		t.Fatalf("unexpected message %q", n.Message)
	}
	if n.Priority != types.PriorityHigh {
		t.Fatalf("priority = %q, want high", n.Priority)
	}
}
