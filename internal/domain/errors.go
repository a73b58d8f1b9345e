package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a game room has not been created.
	ErrRoomNotFound = errors.New("game room not found")
	// ErrRoomExists is returned when a room code is already taken.
	ErrRoomExists = errors.New("game room already exists")
	// ErrPlayerNotFound is returned when a user tries to act before joining.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNotHost is returned when a non-host attempts a host-only intent.
	ErrNotHost = errors.New("not host")
	// ErrInvalidStatus is returned when an intent is not valid for the room status.
	ErrInvalidStatus = errors.New("invalid room status for action")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrEmptyQuestionSet indicates a question set without rounds.
	ErrEmptyQuestionSet = errors.New("question set has no rounds")
	// ErrInvalidRound indicates a round whose answer encoding is unusable.
	ErrInvalidRound = errors.New("invalid round")
	// ErrChallengeNotFound indicates an unknown CTF challenge id.
	ErrChallengeNotFound = errors.New("challenge not found")
)
