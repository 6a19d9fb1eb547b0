package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseMovementKind(t *testing.T) {
	tests := []struct {
		input   string
		want    MovementKind
		wantErr bool
	}{
		{"Deposit", MovementKindDeposit, false},
		{"deposit", MovementKindDeposit, false},
		{" PAYMENT ", MovementKindPayment, false},
		{"Transfer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMovementKind(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMovementKind) || !errors.Is(err, ErrValidation) {
				t.Errorf("ParseMovementKind(%q): expected validation error, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMovementKind(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestSortMovements_StableTiebreak(t *testing.T) {
	ms := []Movement{
		{ID: "01B", Timestamp: t0},
		{ID: "01A", Timestamp: t0},
		{ID: "3", Timestamp: t0.Add(-time.Second)},
	}

	SortMovements(ms)

	got := []string{ms[0].ID, ms[1].ID, ms[2].ID}
	want := []string{"3", "01A", "01B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestFindPosted(t *testing.T) {
	posted := Movement{Kind: MovementKindDeposit, Amount: dec("50"), Timestamp: t0.Add(1500 * time.Microsecond)}
	movements := []Movement{
		{ID: "3", Kind: MovementKindDeposit, Amount: dec("50"), Timestamp: t0.Add(time.Millisecond)},
		{ID: "1", Kind: MovementKindDeposit, Amount: dec("50"), Timestamp: t0.Add(-time.Hour)},
		{ID: "2", Kind: MovementKindPayment, Amount: dec("50"), Timestamp: t0.Add(time.Millisecond)},
	}

	got, ok := FindPosted(movements, posted)
	if !ok || got.ID != "3" {
		t.Fatalf("FindPosted = %q, %v; want 3, true", got.ID, ok)
	}
	if movements[0].ID != "3" {
		t.Fatal("FindPosted reordered its input")
	}

	posted.Amount = dec("51")
	if _, ok := FindPosted(movements, posted); ok {
		t.Fatal("matched a movement with a different amount")
	}
}
