package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDefaultBank(t *testing.T) {
	qs := Default().Questions()
	if len(qs) != RoundSize {
		t.Fatalf("len = %d, want %d", len(qs), RoundSize)
	}
	if qs[0].Word != "Lemon" || qs[0].Options[qs[0].CorrectIndex] != "柠檬" {
		t.Fatalf("first question = %+v, want Lemon/柠檬", qs[0])
	}
}

func questions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{ID: i + 1, Word: "w", Options: []string{"a", "b", "c"}, CorrectIndex: i % 3}
	}
	return qs
}

func TestValidate(t *testing.T) {
	broken := questions(RoundSize)
	broken[2].Options = broken[2].Options[:2]
	broken[4].CorrectIndex = 3
	broken[5].Word = " "
	tests := []struct {
		name string
		qs   []Question
		ok   bool
	}{
		{name: "valid", qs: questions(RoundSize), ok: true},
		{name: "too few", qs: questions(3)},
		{name: "too many", qs: questions(11)},
		{name: "broken items", qs: broken},
	}
	for _, tt := range tests {
		err := Validate(tt.qs)
		if tt.ok != (err == nil) {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidBank) {
			t.Errorf("%s: error %v does not wrap ErrInvalidBank", tt.name, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	doc := "questions:\n"
	for i := 0; i < RoundSize; i++ {
		doc += "  - {id: 1, word: Sun, options: [\"太阳\", \"月亮\", \"星星\"], correctIndex: 0}\n"
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := b.Questions()[9].Word; got != "Sun" {
		t.Fatalf("Word = %q, want Sun", got)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load() of a missing file succeeded")
	}
}

func TestRoundIsDailyRotation(t *testing.T) {
	b := Default()
	day := time.Date(2025, 8, 9, 3, 0, 0, 0, time.UTC)
	r1 := b.Round(day, "s")
	r2 := b.Round(day.Add(12*time.Hour), "s")
	if len(r1) != RoundSize {
		t.Fatalf("round has %d questions", len(r1))
	}
	for i := range r1 {
		if r1[i].ID != r2[i].ID {
			t.Fatalf("round changed within a day at %d", i)
		}
	}
	// every question appears once, in bank order modulo rotation
	all := b.Questions()
	k := 0
	for k < len(all) && all[k].ID != r1[0].ID {
		k++
	}
	for i := range r1 {
		if r1[i].ID != all[(k+i)%len(all)].ID {
			t.Fatalf("round is not a rotation of the bank")
		}
	}
}

func TestTally(t *testing.T) {
	qs := questions(4) // correct: 0 1 2 0
	tests := []struct {
		answers []int
		want    int
	}{
		{answers: []int{0, 1, 2, 0}, want: 4},
		{answers: []int{0, 0, 0, 0}, want: 2},
		{answers: []int{0}, want: 1},
		{answers: nil, want: 0},
		{answers: []int{0, 1, 2, 0, 1, 1}, want: 4},
	}
	for _, tt := range tests {
		if got := Tally(qs, tt.answers); got != tt.want {
			t.Errorf("Tally(%v) = %d, want %d", tt.answers, got, tt.want)
		}
	}
}

// remoteQuiz serves whatever reply currently holds and counts requests.
type remoteQuiz struct {
	mu    sync.Mutex
	reply any
	calls int
}

func (q *remoteQuiz) set(reply any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reply = reply
}

func (q *remoteQuiz) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	_ = json.NewEncoder(w).Encode(q.reply)
}

func TestServiceFallsBackToBank(t *testing.T) {
	remote := &remoteQuiz{reply: map[string]any{"questions": questions(3)}}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	day := time.Date(2025, 8, 9, 0, 0, 0, 0, time.UTC)
	want := Default().Round(day, "s")
	svc := NewService(Default(), NewHTTPSource(srv.URL, time.Second), "s")
	got := svc.Round(context.Background(), day)
	if len(got) != RoundSize || got[0].ID != want[0].ID {
		t.Fatalf("Round() with a short remote list did not fall back to the bank")
	}

	local := NewService(Default(), nil, "s")
	if got := local.Round(context.Background(), day); got[0].ID != want[0].ID {
		t.Fatalf("Round() without remote = %+v, want the bank rotation", got[0])
	}
}

func TestServiceGradesTheServedRound(t *testing.T) {
	served := questions(RoundSize)
	served[0].Word = "Remote"
	remote := &remoteQuiz{reply: map[string]any{"questions": served}}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	ctx := context.Background()
	day := time.Date(2025, 8, 9, 7, 0, 0, 0, time.UTC)
	svc := NewService(Default(), NewHTTPSource(srv.URL, time.Second), "s")
	round := svc.Round(ctx, day)
	if round[0].Word != "Remote" {
		t.Fatalf("Round() first word = %q, want remote questions", round[0].Word)
	}

	answers := make([]int, len(round))
	for i, q := range round {
		answers[i] = q.CorrectIndex
	}
	if got := Tally(svc.Today(ctx, day.Add(6*time.Hour)), answers); got != RoundSize {
		t.Fatalf("Tally(Today) = %d, want %d", got, RoundSize)
	}

	// The day's round stays fixed even if the generator changes its mind.
	remote.set(map[string]any{"questions": questions(3)})
	if got := svc.Round(ctx, day.Add(time.Hour)); got[0].Word != "Remote" {
		t.Fatalf("Round() later the same day = %q, want the cached remote round", got[0].Word)
	}
	round[0].Word = "mutated"
	if got := svc.Today(ctx, day); got[0].Word != "Remote" {
		t.Fatalf("caller mutation leaked into the cached round")
	}

	next := svc.Round(ctx, day.Add(24*time.Hour))
	if next[0].Word == "Remote" {
		t.Fatalf("next day still served yesterday's round")
	}
	remote.mu.Lock()
	calls := remote.calls
	remote.mu.Unlock()
	if calls != 2 {
		t.Fatalf("remote calls = %d, want one per day (2)", calls)
	}
}
