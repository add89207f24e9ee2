package date

import "testing"

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := New(2025, 07, 01), "25 Jul 1"
	d2, v2 := New(2024, 07, 01), "24 Jul 1"

	// appending in reverse order must keep the series sorted.
	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}

	h.Append(d1, v1)
	if h.Len() != 1 {
		t.Errorf("Append(d1, v1).Len() = %v want 1", h.Len())
	}

	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Errorf("Append(d2, v2).Len() = %v want 2", h.Len())
	}

	if h.days[0] != d2 || h.days[1] != d1 {
		t.Errorf("history.days = %v want [%v %v]", h.days, d2, d1)
	}
	if h.values[0] != v2 || h.values[1] != v1 {
		t.Errorf("history.values = %v want [%v %v]", h.values, v2, v1)
	}

	h.Append(d1, "overwritten")
	if got, _ := h.Get(d1); got != "overwritten" || h.Len() != 2 {
		t.Errorf("Append(d1) overwrite: Get(d1) = %q, Len() = %d", got, h.Len())
	}
}

func TestNearest(t *testing.T) {
	h := new(History[int])
	h.Append(MustParse("2024-01-10"), 10)
	h.Append(MustParse("2024-01-20"), 20)
	h.Append(MustParse("2024-03-01"), 30)

	tests := []struct {
		day  string
		want string
	}{
		{"2024-01-12", "2024-01-10"},
		{"2024-01-15", "2024-01-10"}, // tie goes to the earlier date
		{"2024-01-16", "2024-01-20"},
		{"2020-01-01", "2024-01-10"},
		{"2030-01-01", "2024-03-01"},
		{"2024-01-20", "2024-01-20"},
	}
	for _, tt := range tests {
		got, _, ok := h.Nearest(MustParse(tt.day))
		if !ok || got.String() != tt.want {
			t.Errorf("Nearest(%s) = %v, %v want %s", tt.day, got, ok, tt.want)
		}
	}

	var empty History[int]
	if _, _, ok := empty.Nearest(MustParse("2024-01-01")); ok {
		t.Errorf("empty.Nearest() ok = true, want false")
	}
}
