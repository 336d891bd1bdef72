package game

import (
	"fmt"

	"github.com/victornm/millionaire/internal/domain"
)

// GameQuestion is a rung of a game: a question with its answers shuffled. A, B, C and D hold
// the 1-based index of the question answer displayed under that letter; index 1 is the correct one.
type GameQuestion struct {
	Question domain.Question `json:"question"`
	A        int             `json:"a"`
	B        int             `json:"b"`
	C        int             `json:"c"`
	D        int             `json:"d"`
	Help     Help            `json:"help"`
}

// NewGameQuestion shuffles the answers of q.
func NewGameQuestion(q domain.Question, r Rand) *GameQuestion {
	p := r.Perm(4)
	return &GameQuestion{
		Question: q,
		A:        p[0] + 1,
		B:        p[1] + 1,
		C:        p[2] + 1,
		D:        p[3] + 1,
	}
}

func (q *GameQuestion) Level() int   { return q.Question.Level }
func (q *GameQuestion) Text() string { return q.Question.Text }

func (q *GameQuestion) slot(l Letter) int {
	switch l {
	case LetterA:
		return q.A
	case LetterB:
		return q.B
	case LetterC:
		return q.C
	case LetterD:
		return q.D
	}
	return 0
}

// Validate checks that A, B, C and D are a permutation of 1..4.
func (q *GameQuestion) Validate() error {
	var seen [5]bool
	for _, l := range Letters {
		i := q.slot(l)
		if i < 1 || i > 4 || seen[i] {
			return fmt.Errorf("game question: invalid answer order %d %d %d %d", q.A, q.B, q.C, q.D)
		}
		seen[i] = true
	}
	return nil
}

// Variants returns the answer text displayed under each letter.
func (q *GameQuestion) Variants() map[Letter]string {
	v := make(map[Letter]string, len(Letters))
	for _, l := range Letters {
		v[l] = q.Question.Answers[q.slot(l)-1]
	}
	return v
}

// CorrectAnswerKey returns the letter the correct answer is displayed under.
func (q *GameQuestion) CorrectAnswerKey() Letter {
	for _, l := range Letters {
		if q.slot(l) == 1 {
			return l
		}
	}
	return ""
}

func (q *GameQuestion) CorrectAnswer() string {
	return q.Question.Answers[0]
}

// AnswerCorrect compares letter with the correct key ignoring case.
func (q *GameQuestion) AnswerCorrect(letter string) bool {
	l, err := ParseLetter(letter)
	if err != nil {
		return false
	}
	return l == q.CorrectAnswerKey()
}

// ApplyHelp generates a hint of kind and stores it. A kind is stored once; applying it again
// returns ErrHelpUsed and leaves the stored hint as is.
func (q *GameQuestion) ApplyHelp(kind HelpKind, h *Helper) error {
	if q.Help.Has(kind) {
		return failedPrecondition(ErrHelpUsed, "help %s is already used on level %d", kind, q.Level())
	}

	keys, correct := q.helpKeys(), q.CorrectAnswerKey()

	switch kind {
	case HelpAudience:
		q.Help.AudienceHelp = h.AudienceDistribution(keys, correct)
	case HelpFiftyFifty:
		q.Help.FiftyFifty = h.FiftyFifty(keys, correct)
	case HelpFriendCall:
		q.Help.FriendCall = h.FriendCall(keys, correct)
	default:
		_, err := ParseHelpKind(string(kind))
		return err
	}

	return nil
}

// helpKeys returns the letters hints may point to: those left by fifty-fifty, if used.
func (q *GameQuestion) helpKeys() []Letter {
	if q.Help.FiftyFifty != nil {
		return append([]Letter(nil), q.Help.FiftyFifty...)
	}
	return Letters[:]
}
