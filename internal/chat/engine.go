// Package chat runs one conversational turn: classify the utterance, pick a
// response, and record the exchange.
package chat

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"intent-chatter/internal/classifier"
	"intent-chatter/internal/storage"
)

// Farewell is shown after the user ends the conversation.
const Farewell = "Thank you for chatting with me. Have a great day!"

// Predictor maps an utterance to an intent tag.
type Predictor interface {
	Predict(text string) (classifier.Prediction, error)
}

// Selector picks a response for a tag.
type Selector interface {
	Select(tag string) (string, error)
}

// Reply is the outcome of one turn. LogErr is set when the turn could not be
// recorded; the reply itself is still valid.
type Reply struct {
	Tag         string
	Probability float64
	Response    string
	Turn        storage.Turn
	Ended       bool
	LogErr      error
}

type Engine struct {
	predictor Predictor
	selector  Selector
	recorder  storage.Recorder
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine wires the pipeline. recorder may be nil, in which case turns are
// not persisted.
func NewEngine(p Predictor, s Selector, recorder storage.Recorder, opts ...Option) *Engine {
	e := &Engine{
		predictor: p,
		selector:  s,
		recorder:  recorder,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// IsFarewell reports whether input ends the conversation.
func IsFarewell(input string) bool {
	s := strings.TrimSpace(input)
	return strings.EqualFold(s, "bye") || strings.EqualFold(s, "goodbye")
}

// Respond classifies input, selects a response and appends the turn to the
// log. Farewell inputs are classified like any other; blank input is rejected
// with ErrEmptyInput and never logged.
func (e *Engine) Respond(input string) (Reply, error) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, ErrEmptyInput
	}
	pred, err := e.predictor.Predict(input)
	if err != nil {
		return Reply{}, fmt.Errorf("classify: %w", err)
	}
	resp, err := e.selector.Select(pred.Tag)
	if err != nil {
		return Reply{}, fmt.Errorf("select response: %w", err)
	}

	reply := Reply{
		Tag:         pred.Tag,
		Probability: pred.Probability,
		Response:    resp,
		Turn:        storage.NewTurn(input, resp, e.now()),
		Ended:       IsFarewell(input),
	}
	e.logger.Debug("turn",
		zap.String("tag", pred.Tag),
		zap.Float64("probability", pred.Probability),
		zap.Bool("ended", reply.Ended))

	if e.recorder != nil {
		if err := e.recorder.Append(reply.Turn); err != nil {
			e.logger.Warn("failed to record turn", zap.Error(err))
			reply.LogErr = err
		}
	}
	return reply, nil
}

// History replays the conversation log.
func (e *Engine) History() iter.Seq2[storage.Turn, error] {
	if e.recorder == nil {
		return func(func(storage.Turn, error) bool) {}
	}
	return e.recorder.ReadAll()
}

// Classify exposes the predictor for tooling such as daily statistics.
func (e *Engine) Classify(text string) (string, error) {
	pred, err := e.predictor.Predict(text)
	if err != nil {
		return "", err
	}
	return pred.Tag, nil
}

// Welcome introduces the conversation view.
const Welcome = "Welcome to the chatbot. Start chatting below. Type 'bye' to end the conversation."

// About describes the chatbot.
const About = `This chatbot is built using Natural Language Processing (NLP) and Logistic Regression.
It understands user intents and provides appropriate responses.
Utterances are vectorized with TF-IDF and classified into one of the known intents;
the reply is picked at random from the responses of that intent.`
