package leaderboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type sliceStore struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *sliceStore) Top(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

func (s *sliceStore) Add(ctx context.Context, e Entry) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = Insert(s.entries, e)
	return append([]Entry(nil), s.entries...), nil
}

func TestInsertKeepsTopFive(t *testing.T) {
	var list []Entry
	for i, score := range []int{50, 90, 10, 70, 30, 80, 20} {
		list = Insert(list, Entry{Name: string(rune('a' + i)), Score: score})
	}
	want := []int{90, 80, 70, 50, 30}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].Score != w {
			t.Fatalf("list[%d].Score = %d, want %d", i, list[i].Score, w)
		}
	}
}

func TestInsertTiesKeepOlderFirst(t *testing.T) {
	list := Insert(nil, Entry{Name: "old", Score: 100})
	list = Insert(list, Entry{Name: "new", Score: 100})
	if list[0].Name != "old" || list[1].Name != "new" {
		t.Fatalf("tie order = %s,%s, want old,new", list[0].Name, list[1].Name)
	}
	in := []Entry{{Name: "x", Score: 1}}
	_ = Insert(in, Entry{Name: "y", Score: 2})
	if in[0].Name != "x" || len(in) != 1 {
		t.Fatalf("Insert modified its input")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "  Lemon  ", want: "Lemon"},
		{in: "abcdefghijklmnop", want: "abcdefghijkl"},
		{in: "🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋", want: "🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋🍋"},
		{in: "   ", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("NormalizeName(%q) error = %v, want ErrInvalidName", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestQualifies(t *testing.T) {
	var list []Entry
	for _, s := range []int{500, 400, 300, 200, 100} {
		list = Insert(list, Entry{Score: s})
	}
	if Qualifies(list, 100) {
		t.Errorf("Qualifies(100) = true on a full table ending at 100")
	}
	if !Qualifies(list, 101) {
		t.Errorf("Qualifies(101) = false, want true")
	}
	if !Qualifies(list[:2], 0) {
		t.Errorf("Qualifies on a short table = false, want true")
	}

	b := New(&sliceStore{entries: list}, nil)
	for score, want := range map[int]bool{100: false, 101: true} {
		got, err := b.Qualifies(context.Background(), score)
		if err != nil || got != want {
			t.Errorf("Board.Qualifies(%d) = %v, %v; want %v", score, got, err, want)
		}
	}
}

func TestRecord(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	b := New(&sliceStore{}, func() time.Time { return now })
	e, list, err := b.Record(context.Background(), " Zest ", 420, 12, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := Entry{Name: "Zest", Score: 420 + 12*MovesBonus, Level: 3, Date: now.UnixMilli()}
	if e != want {
		t.Fatalf("Record() = %+v, want %+v", e, want)
	}
	if len(list) != 1 || list[0] != want {
		t.Fatalf("table = %+v, want [%+v]", list, want)
	}
	if _, _, err := b.Record(context.Background(), "", 1, 1, 1); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Record with empty name = %v, want ErrInvalidName", err)
	}
	top, _ := b.Top(context.Background())
	if len(top) != 1 {
		t.Fatalf("rejected record was stored: %+v", top)
	}
}
