package game

import (
	stderrors "errors"
	"strings"

	"github.com/victornm/millionaire/internal/errors"
)

var (
	ErrGameFinished       = stderrors.New("game is finished")
	ErrHelpUsed           = stderrors.New("help is already used")
	ErrNothingToTake      = stderrors.New("no level answered yet")
	ErrNotEnoughQuestions = stderrors.New("not enough questions")
	ErrInvalidLetter      = stderrors.New("invalid answer letter")
	ErrInvalidHelpKind    = stderrors.New("invalid help kind")
)

// Letter is a displayed answer key.
type Letter string

const (
	LetterA Letter = "a"
	LetterB Letter = "b"
	LetterC Letter = "c"
	LetterD Letter = "d"
)

// Letters are the answer keys in display order.
var Letters = [4]Letter{LetterA, LetterB, LetterC, LetterD}

// ParseLetter accepts a letter in any case.
func ParseLetter(s string) (Letter, error) {
	l := Letter(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Letters {
		if v == l {
			return l, nil
		}
	}

	return "", errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid answer letter %q, want one of a, b, c, d", s),
		errors.WithCause(ErrInvalidLetter),
	)
}

func (l Letter) Upper() string { return strings.ToUpper(string(l)) }

type HelpKind string

const (
	HelpAudience   HelpKind = "audience_help"
	HelpFiftyFifty HelpKind = "fifty_fifty"
	HelpFriendCall HelpKind = "friend_call"
)

var HelpKinds = [3]HelpKind{HelpFiftyFifty, HelpAudience, HelpFriendCall}

func ParseHelpKind(s string) (HelpKind, error) {
	k := HelpKind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range HelpKinds {
		if v == k {
			return k, nil
		}
	}

	return "", errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid help type %q", s),
		errors.WithCause(ErrInvalidHelpKind),
	)
}

// HelpScope decides how often a help kind may be used.
type HelpScope string

const (
	HelpScopeQuestion HelpScope = "question"
	HelpScopeGame     HelpScope = "game"
)

// Status is derived from the game fields, it is never stored.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusMoney      Status = "money"
	StatusFail       Status = "fail"
	StatusTimeout    Status = "timeout"
)

func (s Status) Terminal() bool { return s != StatusInProgress }

// PaysOut reports whether games finishing with this status credit their prize.
func (s Status) PaysOut() bool { return s == StatusWon || s == StatusMoney }

func failedPrecondition(cause error, format string, args ...any) *errors.Error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef(format, args...),
		errors.WithCause(cause),
	)
}
