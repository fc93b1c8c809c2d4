package chat

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"intent-chatter/internal/history"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrSessionEnded = errors.New("session ended")
)

type State int

const (
	StateIdle State = iota
	StateAwaitingInput
	StateClassifying
	StateResponding
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateClassifying:
		return "classifying"
	case StateResponding:
		return "responding"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session drives turns for one interactive conversation and owns its
// transcript. It is not safe for concurrent use.
type Session struct {
	engine       *Engine
	transcript   *history.Transcript
	state        State
	onTransition func(from, to State)
}

func NewSession(engine *Engine) *Session {
	return &Session{
		engine:     engine,
		transcript: history.NewTranscript(),
		state:      StateIdle,
	}
}

// OnTransition registers a hook called on every state change.
func (s *Session) OnTransition(f func(from, to State)) { s.onTransition = f }

func (s *Session) State() State { return s.state }

func (s *Session) Ended() bool { return s.state == StateEnded }

func (s *Session) Transcript() *history.Transcript { return s.transcript }

func (s *Session) moveTo(to State) {
	from := s.state
	s.state = to
	s.engine.logger.Debug("session state",
		zap.String("session", s.transcript.ID()),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}

// Submit runs one turn. Blank input is rejected without a state change; a
// farewell ends the session after the turn is recorded.
func (s *Session) Submit(input string) (Reply, error) {
	if s.state == StateEnded {
		return Reply{}, ErrSessionEnded
	}
	if strings.TrimSpace(input) == "" {
		return Reply{}, ErrEmptyInput
	}

	s.moveTo(StateAwaitingInput)
	s.moveTo(StateClassifying)
	reply, err := s.engine.Respond(input)
	if err != nil {
		s.moveTo(StateIdle)
		return Reply{}, err
	}
	s.moveTo(StateResponding)

	s.transcript.AppendUser(input)
	s.transcript.AppendChatbot(reply.Response)

	if reply.Ended {
		s.moveTo(StateEnded)
	} else {
		s.moveTo(StateIdle)
	}
	return reply, nil
}
