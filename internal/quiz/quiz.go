// internal/quiz/quiz.go
//
// Vocabulary quiz for the daily minigame.
//
// Responsibilities:
//   - Load the question bank from QUIZ_FILE or the embedded default.
//   - Validate it: exactly RoundSize questions, OptionCount options each.
//   - Order today's round with a salted per-day rotation.
//   - Tally submitted answers.
//
// Scoring normally happens in the client; only the number of correct
// answers crosses into the economy ledger.
package quiz

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/lemonparty/assets"
	"github.com/robalobadob/lemonparty/internal/daily"
)

const (
	RoundSize   = 10
	OptionCount = 3
)

var ErrInvalidBank = errors.New("invalid quiz bank")

// Question is one multiple-choice item.
type Question struct {
	ID           int      `yaml:"id" json:"id"`
	Word         string   `yaml:"word" json:"word"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correctIndex" json:"correctIndex"`
}

// Bank is a validated, immutable question list.
type Bank struct {
	questions []Question
}

// NewBank validates qs and copies them into a Bank.
func NewBank(qs []Question) (*Bank, error) {
	if err := Validate(qs); err != nil {
		return nil, err
	}
	return &Bank{questions: copyQuestions(qs)}, nil
}

// Validate checks a question list.
func Validate(qs []Question) error {
	if len(qs) != RoundSize {
		return fmt.Errorf("%w: %d questions, want %d", ErrInvalidBank, len(qs), RoundSize)
	}
	var errs []string
	for i, q := range qs {
		if strings.TrimSpace(q.Word) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty word", i+1))
		}
		if len(q.Options) != OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: %d options, want %d", i+1, len(q.Options), OptionCount))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			errs = append(errs, fmt.Sprintf("question %d: correctIndex %d out of range", i+1, q.CorrectIndex))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBank, strings.Join(errs, "; "))
	}
	return nil
}

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// Parse reads a YAML bank (`questions:` list).
func Parse(b []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	return NewBank(f.Questions)
}

// Load reads the bank at path, or the embedded one when path is empty.
func Load(path string) (*Bank, error) {
	var (
		b   []byte
		err error
	)
	if path == "" {
		b, err = assets.QuestionsYAML()
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Default is the embedded bank. It panics if the embedded file is broken.
func Default() *Bank {
	b, err := Load("")
	if err != nil {
		panic(err)
	}
	return b
}

// Questions returns a copy of the bank in file order.
func (b *Bank) Questions() []Question { return copyQuestions(b.questions) }

// Round returns the questions for the UTC day of t: the bank rotated by a
// salted per-day offset.
func (b *Bank) Round(t time.Time, salt string) []Question {
	qs := b.Questions()
	k := daily.Index(t, salt, len(qs))
	return append(qs[k:], qs[:k]...)
}

// Tally counts answers that pick the correct option. Missing answers
// count as wrong; extra answers are ignored.
func Tally(qs []Question, answers []int) int {
	n := 0
	for i, q := range qs {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			n++
		}
	}
	return n
}
