package backtest

import (
	"errors"
	"math"
	"testing"

	"FinBack/internal/domain/models"
)

func TestBuildLedgerDropsUndefined(t *testing.T) {
	ix := testIndex(5)
	pos := models.Series{Index: ix, Values: []float64{nan, nan, 1, 1, -1}}
	px := models.Series{Index: ix, Values: []float64{1, 2, 3, 4, 5}}

	l, err := BuildLedger(pos, px)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", l.Len())
	}
	if !l.Index[0].Equal(ix[2]) {
		t.Fatalf("expected first row at %v, got %v", ix[2], l.Index[0])
	}
	sameFloats(t, "price", l.Price, []float64{3, 4, 5})
	sameFloats(t, "volume", l.Volume, []float64{nan, 0, -2})
}

func TestBuildLedgerVolumeIsPositionDiff(t *testing.T) {
	ix := testIndex(6)
	pos := models.Series{Index: ix, Values: []float64{nan, 1, 0, -1, -1, 1}}
	px := models.Series{Index: ix, Values: []float64{1, 1, 1, 1, 1, 1}}

	l, err := BuildLedger(pos, px)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(l.Volume[0]) {
		t.Fatalf("first volume must be undefined, got %v", l.Volume[0])
	}
	for i := 1; i < l.Len(); i++ {
		if l.Volume[i] != l.Position[i]-l.Position[i-1] {
			t.Fatalf("volume[%d] = %v, want %v", i, l.Volume[i], l.Position[i]-l.Position[i-1])
		}
	}
}

func TestBuildLedgerIndexMismatch(t *testing.T) {
	pos := models.Series{Index: testIndex(2), Values: []float64{1, 1}}
	px := models.Series{Index: testIndex(3), Values: []float64{1, 1, 1}}
	if _, err := BuildLedger(pos, px); !errors.Is(err, ErrIndexMismatch) {
		t.Fatalf("expected ErrIndexMismatch, got %v", err)
	}
}

func TestLedgerEvents(t *testing.T) {
	ix := testIndex(5)
	pos := models.Series{Index: ix, Values: []float64{1, 1, -1, 0, 1}}
	px := models.Series{Index: ix, Values: []float64{10, 11, 12, 13, 14}}
	l, err := BuildLedger(pos, px)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []models.EventKind{models.LongEnter, models.LongExit, models.ShortEnter, models.ShortExit, models.LongEnter}
	got := l.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Kind != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i].Kind, want[i])
		}
	}
	if got[1].Price != 12 || !got[1].Time.Equal(ix[2]) {
		t.Fatalf("unexpected long exit %+v", got[1])
	}
}
