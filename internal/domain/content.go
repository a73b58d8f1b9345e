package domain

// Module is a training module from the static catalog.
type Module struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Minutes     int      `json:"minutes" yaml:"minutes"`
	Lessons     []string `json:"lessons" yaml:"lessons"`
}

// Challenge is a CTF practice challenge. Flag is never serialized to clients.
type Challenge struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Category string   `json:"category" yaml:"category"`
	Points   int      `json:"points" yaml:"points"`
	Hints    []string `json:"hints" yaml:"hints"`
	Flag     string   `json:"-" yaml:"flag"`
}

// SolveResult is the outcome of a flag submission.
type SolveResult struct {
	ChallengeID string `json:"challengeId"`
	Correct     bool   `json:"correct"`
	HintsUsed   int    `json:"hintsUsed"`
	Points      int    `json:"points"`
}
