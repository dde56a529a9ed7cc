package readiness

import (
	"reflect"
	"testing"
)

func TestComputeReferenceExample(t *testing.T) {
	schedule := []Task{
		{ID: "a", Weight: 25},
		{ID: "b", Weight: 20},
		{ID: "c", Weight: 20},
		{ID: "d", Weight: 15},
		{ID: "e", Weight: 20},
	}
	items := map[string]Item{
		"a": {Status: "done"},
		"b": {Status: "in_progress"},
		"c": {Status: "not_started"},
		"d": {Status: "done"},
		"e": {Status: "blocked"},
	}
	st := Compute(items, schedule)
	if st.CompletedWeight != 50 {
		t.Fatalf("completed weight = %v, want 50", st.CompletedWeight)
	}
	if st.Percent != 50 {
		t.Fatalf("percent = %d, want 50", st.Percent)
	}
	if st.CompletedItems != 2 || st.RemainingItems != 3 {
		t.Fatalf("counts = %d/%d, want 2/3", st.CompletedItems, st.RemainingItems)
	}
}

func TestComputeSingleDoneEqualsWeight(t *testing.T) {
	schedule := DefaultSchedule()
	for _, task := range schedule {
		st := Compute(map[string]Item{task.ID: {Status: StatusDone}}, schedule)
		if st.Percent != task.Weight {
			t.Fatalf("task %s done: percent = %d, want %d", task.ID, st.Percent, task.Weight)
		}
	}
}

func TestComputeMonotonicAcrossStatuses(t *testing.T) {
	schedule := DefaultSchedule()
	ladder := []string{StatusNotStarted, StatusInProgress, StatusDone}
	for _, task := range schedule {
		prev := -1
		for _, status := range ladder {
			st := Compute(map[string]Item{task.ID: {Status: status}}, schedule)
			if st.Percent < prev {
				t.Fatalf("task %s %s: percent %d dropped below %d", task.ID, status, st.Percent, prev)
			}
			if st.Percent < 0 || st.Percent > 100 {
				t.Fatalf("percent %d out of range", st.Percent)
			}
			prev = st.Percent
		}
		// blocked scores the same as not_started
		blocked := Compute(map[string]Item{task.ID: {Status: StatusBlocked}}, schedule)
		fresh := Compute(map[string]Item{task.ID: {Status: StatusNotStarted}}, schedule)
		if blocked.Percent != fresh.Percent {
			t.Fatalf("blocked percent %d != not_started percent %d", blocked.Percent, fresh.Percent)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	schedule := DefaultSchedule()
	items := map[string]Item{"scope": {Status: StatusDone}, "risk": {Status: StatusInProgress}}
	a := Compute(items, schedule)
	b := Compute(items, schedule)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("compute not deterministic: %+v vs %+v", a, b)
	}
}

func TestComputeUnknownStatusScoresZero(t *testing.T) {
	schedule := DefaultSchedule()
	st := Compute(map[string]Item{"scope": {Status: "Done"}, "budget": {Status: "finished"}}, schedule)
	if st.CompletedWeight != 0 || st.Percent != 0 {
		t.Fatalf("unknown statuses scored: %+v", st)
	}
	if st.Items[0].Status != StatusNotStarted {
		t.Fatalf("unknown status not normalized: %s", st.Items[0].Status)
	}
}

func TestComputeMissingItemsDefault(t *testing.T) {
	schedule := DefaultSchedule()
	st := Compute(nil, schedule)
	if len(st.Items) != len(schedule) {
		t.Fatalf("items = %d, want %d", len(st.Items), len(schedule))
	}
	if st.Percent != 0 || st.CompletedItems != 0 || st.RemainingItems != len(schedule) {
		t.Fatalf("empty checklist: %+v", st)
	}
}

func TestComputeEmptySchedule(t *testing.T) {
	st := Compute(map[string]Item{"x": {Status: StatusDone}}, nil)
	if st.Percent != 0 || st.TotalWeight != 0 {
		t.Fatalf("empty schedule: %+v", st)
	}
}

func TestComputeAllDone(t *testing.T) {
	schedule := DefaultSchedule()
	items := map[string]Item{}
	for _, task := range schedule {
		items[task.ID] = Item{Status: StatusDone}
	}
	st := Compute(items, schedule)
	if st.Percent != 100 || st.RemainingItems != 0 {
		t.Fatalf("all done: %+v", st)
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 1 of 3 equal weights in progress: 0.5/3 = 16.666... -> 17
	schedule := []Task{{ID: "a", Weight: 1}, {ID: "b", Weight: 1}, {ID: "c", Weight: 1}}
	st := Compute(map[string]Item{"a": {Status: StatusInProgress}}, schedule)
	if st.Percent != 17 {
		t.Fatalf("percent = %d, want 17", st.Percent)
	}
}

func TestDefaultScheduleWeightsSumTo100(t *testing.T) {
	total := 0
	for _, task := range DefaultSchedule() {
		total += task.Weight
	}
	if total != 100 {
		t.Fatalf("schedule weights sum to %d", total)
	}
}
