package quiz

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/dgallion1/docquiz/internal/extract"
	"github.com/google/uuid"
)

const (
	OptionCount     = 4
	DistractorCount = OptionCount - 1
	BlankMarker     = "______"
)

// Option is one answer choice.
type Option struct {
	Text     string           `json:"text" yaml:"text"`
	Category extract.Category `json:"category" yaml:"category"`
}

// Question is one multiple-choice item. Options holds exactly OptionCount
// entries with distinct texts, and Options[AnswerIndex] is the only one
// whose text is CorrectAnswer.
type Question struct {
	ID              string           `json:"id" yaml:"id"`
	Prompt          string           `json:"prompt" yaml:"prompt"`
	CorrectAnswer   string           `json:"correct_answer" yaml:"correct_answer"`
	Category        extract.Category `json:"category" yaml:"category"`
	Options         []Option         `json:"options" yaml:"options"`
	AnswerIndex     int              `json:"answer_index" yaml:"answer_index"`
	Sentence        string           `json:"sentence" yaml:"sentence"`
	SourceUnitIndex int              `json:"source_unit_index" yaml:"source_unit_index"`
}

// Letter returns the option label for index i: 0 is "A".
func Letter(i int) string {
	return string(rune('A' + i))
}

// AnswerLetter is the label of the correct option.
func (q Question) AnswerLetter() string {
	return Letter(q.AnswerIndex)
}

// Set is the ordered output of one assembly run.
type Set struct {
	Questions []Question `json:"questions" yaml:"questions"`
}

// Report counts what happened to each mention.
type Report struct {
	Mentions     int `json:"mentions"`
	Emitted      int `json:"emitted"`
	Duplicates   int `json:"duplicates"`
	Insufficient int `json:"insufficient"`
	Anomalies    int `json:"anomalies"`
}

// Anomaly is an internal inconsistency hit while assembling one mention.
// Only that mention is skipped.
type Anomaly struct {
	Index  int
	Reason string
}

func (a *Anomaly) Error() string {
	return fmt.Sprintf("mention %d: %s", a.Index, a.Reason)
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithDisjointDistractors keeps entities that already served as a correct
// answer out of later questions' distractors.
func WithDisjointDistractors() AssemblerOption {
	return func(a *Assembler) { a.disjoint = true }
}

// Assembler turns an entity pool into questions. The output is a pure
// function of the pool and the state of rng.
type Assembler struct {
	rng      *rand.Rand
	log      *slog.Logger
	disjoint bool
}

func NewAssembler(rng *rand.Rand, log *slog.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{rng: rng, log: log.With("component", "quiz")}
	for _, o := range opts {
		o(a)
	}
	return a
}

// NewSeeded returns an Assembler backed by a PCG source seeded with seed.
func NewSeeded(seed uint64, log *slog.Logger, opts ...AssemblerOption) *Assembler {
	return NewAssembler(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), log, opts...)
}

type outcome int

const (
	emitted outcome = iota
	duplicate
	insufficient
)

// Assemble visits the pool once in order and emits at most one question
// per distinct (text, category).
func (a *Assembler) Assemble(pool extract.Pool) (Set, Report) {
	var set Set
	var rep Report
	used := make(map[extract.Key]struct{})

	for i := range pool {
		rep.Mentions++
		q, out, err := a.safeAssemble(pool, i, used)
		if err != nil {
			rep.Anomalies++
			a.log.Warn("skipping mention", "error", err, "entity", pool[i].Text)
			continue
		}
		switch out {
		case duplicate:
			rep.Duplicates++
		case insufficient:
			rep.Insufficient++
			a.log.Debug("not enough distractors", "entity", pool[i].Text, "category", pool[i].Category)
		case emitted:
			rep.Emitted++
			set.Questions = append(set.Questions, q)
		}
	}

	a.log.Info("questions assembled",
		"mentions", rep.Mentions,
		"emitted", rep.Emitted,
		"duplicates", rep.Duplicates,
		"insufficient", rep.Insufficient,
		"anomalies", rep.Anomalies,
	)
	return set, rep
}

func (a *Assembler) safeAssemble(pool extract.Pool, i int, used map[extract.Key]struct{}) (q Question, out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Anomaly{Index: i, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return a.assembleOne(pool, i, used)
}

func (a *Assembler) assembleOne(pool extract.Pool, i int, used map[extract.Key]struct{}) (Question, outcome, error) {
	m := pool[i]
	key := m.Key()
	if _, ok := used[key]; ok {
		return Question{}, duplicate, nil
	}

	candidates := make([]int, 0, len(pool))
	texts := make(map[string]struct{})
	for j, c := range pool {
		ck := c.Key()
		if ck.Text == key.Text {
			continue
		}
		if _, ok := used[ck]; ok && a.disjoint {
			continue
		}
		candidates = append(candidates, j)
		texts[ck.Text] = struct{}{}
	}
	if len(texts) < DistractorCount {
		return Question{}, insufficient, nil
	}

	// Options are printed by text, so distractors are distinct by text too.
	chosen := make(map[string]struct{}, DistractorCount)
	options := make([]Option, 0, OptionCount)
	for len(candidates) > 0 && len(options) < DistractorCount {
		k := a.rng.IntN(len(candidates))
		idx := candidates[k]
		last := len(candidates) - 1
		candidates[k] = candidates[last]
		candidates = candidates[:last]

		if idx < 0 || idx >= len(pool) {
			return Question{}, 0, &Anomaly{Index: i, Reason: fmt.Sprintf("candidate index %d out of range", idx)}
		}
		ck := pool[idx].Key()
		if ck.Text == key.Text {
			continue
		}
		if _, ok := chosen[ck.Text]; ok {
			continue
		}
		chosen[ck.Text] = struct{}{}
		options = append(options, Option{Text: ck.Text, Category: ck.Category})
	}
	if len(options) < DistractorCount {
		return Question{}, insufficient, nil
	}

	if !strings.Contains(m.Sentence, m.Text) {
		return Question{}, 0, &Anomaly{Index: i, Reason: "entity not found in sentence"}
	}

	options = append(options, Option{Text: m.Text, Category: m.Category})
	a.rng.Shuffle(len(options), func(x, y int) { options[x], options[y] = options[y], options[x] })

	answer := -1
	for x, o := range options {
		if o.Text == m.Text {
			if answer >= 0 {
				return Question{}, 0, &Anomaly{Index: i, Reason: "correct answer appears twice"}
			}
			answer = x
		}
	}
	if answer < 0 || options[answer].Category != m.Category {
		return Question{}, 0, &Anomaly{Index: i, Reason: "correct answer missing after shuffle"}
	}

	used[key] = struct{}{}
	return Question{
		ID:              questionID(key, m.Sentence),
		Prompt:          strings.Replace(m.Sentence, m.Text, BlankMarker, 1),
		CorrectAnswer:   m.Text,
		Category:        m.Category,
		Options:         options,
		AnswerIndex:     answer,
		Sentence:        m.Sentence,
		SourceUnitIndex: m.SourceUnitIndex,
	}, emitted, nil
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dgallion1/docquiz/question"))

// questionID is stable for the same answer and sentence across runs.
func questionID(key extract.Key, sentence string) string {
	return uuid.NewSHA1(idNamespace, []byte(key.Text+"\x00"+string(key.Category)+"\x00"+sentence)).String()
}
