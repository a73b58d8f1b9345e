package domain

import "fmt"

// RoundType discriminates the Round variants.
type RoundType string

const (
	RoundPhish    RoundType = "phish"
	RoundPassword RoundType = "password"
	RoundSpotURL  RoundType = "spot_url"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// PasswordOptionCount is the number of strength ratings (weak, medium, strong).
const PasswordOptionCount = 3

// Answer encoding for phish rounds.
const (
	AnswerLegitimate = 0
	AnswerPhishing   = 1
)

// Round is one trivia question. Exactly one of Phish, Password or SpotURL is set,
// matching Type.
type Round struct {
	ID          string     `json:"id" yaml:"id"`
	Type        RoundType  `json:"type" yaml:"type"`
	Difficulty  Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	Category    string     `json:"category,omitempty" yaml:"category"`
	Explanation string     `json:"explanation,omitempty" yaml:"explanation"`
	FunFact     string     `json:"funFact,omitempty" yaml:"funFact"`
	Clues       []string   `json:"clues" yaml:"clues"`

	Phish    *PhishEmail     `json:"phish,omitempty" yaml:"phish"`
	Password *PasswordPrompt `json:"password,omitempty" yaml:"password"`
	SpotURL  *SpotURLPrompt  `json:"spotUrl,omitempty" yaml:"spotUrl"`
}

// PhishEmail is shown to players who decide whether it is phishing.
type PhishEmail struct {
	SenderName  string `json:"senderName" yaml:"senderName"`
	SenderEmail string `json:"senderEmail" yaml:"senderEmail"`
	Subject     string `json:"subject" yaml:"subject"`
	Body        string `json:"body" yaml:"body"`
	IsPhishing  bool   `json:"isPhishing" yaml:"isPhishing"`
}

// PasswordPrompt asks players to rate a password's strength.
type PasswordPrompt struct {
	Password      string   `json:"password" yaml:"password"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
}

type URLChoice struct {
	URL   string `json:"url" yaml:"url"`
	Label string `json:"label" yaml:"label"`
}

// SpotURLPrompt asks players to pick the real URL out of a list.
type SpotURLPrompt struct {
	Scenario     string      `json:"scenario" yaml:"scenario"`
	URLs         []URLChoice `json:"urls" yaml:"urls"`
	CorrectIndex int         `json:"correctIndex" yaml:"correctIndex"`
}

// CorrectAnswer returns the ground truth as an option index, whatever the variant.
func (r Round) CorrectAnswer() int {
	switch r.Type {
	case RoundPhish:
		if r.Phish != nil && r.Phish.IsPhishing {
			return AnswerPhishing
		}
		return AnswerLegitimate
	case RoundPassword:
		if r.Password != nil {
			return r.Password.CorrectAnswer
		}
	case RoundSpotURL:
		if r.SpotURL != nil {
			return r.SpotURL.CorrectIndex
		}
	}
	return -1
}

// OptionCount is the number of answers a player can choose from.
func (r Round) OptionCount() int {
	switch r.Type {
	case RoundPhish:
		return 2
	case RoundPassword:
		if r.Password != nil {
			return len(r.Password.Options)
		}
	case RoundSpotURL:
		if r.SpotURL != nil {
			return len(r.SpotURL.URLs)
		}
	}
	return 0
}

// Validate checks that the variant payload matches Type and that the
// correct answer points inside the option list.
func (r Round) Validate() error {
	switch r.Type {
	case RoundPhish:
		if r.Phish == nil {
			return fmt.Errorf("%w: round %s: missing phish payload", ErrInvalidRound, r.ID)
		}
	case RoundPassword:
		if r.Password == nil {
			return fmt.Errorf("%w: round %s: missing password payload", ErrInvalidRound, r.ID)
		}
		if len(r.Password.Options) != PasswordOptionCount {
			return fmt.Errorf("%w: round %s: password rounds need %d strength options, got %d",
				ErrInvalidRound, r.ID, PasswordOptionCount, len(r.Password.Options))
		}
	case RoundSpotURL:
		if r.SpotURL == nil {
			return fmt.Errorf("%w: round %s: missing spot_url payload", ErrInvalidRound, r.ID)
		}
	default:
		return fmt.Errorf("%w: round %s: unknown type %q", ErrInvalidRound, r.ID, r.Type)
	}
	if c := r.CorrectAnswer(); c < 0 || c >= r.OptionCount() {
		return fmt.Errorf("%w: round %s: correct answer %d outside %d options", ErrInvalidRound, r.ID, c, r.OptionCount())
	}
	return nil
}

// QuestionSet is an ordered list of rounds played in one game.
type QuestionSet struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Rounds []Round `json:"rounds" yaml:"rounds"`
}

// Validate checks every round of the set.
func (qs QuestionSet) Validate() error {
	if len(qs.Rounds) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyQuestionSet, qs.ID)
	}
	for _, r := range qs.Rounds {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
