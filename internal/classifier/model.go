// Package classifier trains, persists and applies the TF-IDF + logistic
// regression intent model.
package classifier

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"intent-chatter/internal/intents"
)

// ErrModelNotReady is returned when prediction is attempted without a trained
// or loaded model.
var ErrModelNotReady = errors.New("model not ready")

const (
	DefaultC       = 1.0
	DefaultMaxIter = 10000
)

// Options control training.
type Options struct {
	C       float64
	MaxIter int
	// Force retrains even when up-to-date artifacts exist.
	Force bool
}

func (o Options) withDefaults() Options {
	if o.C <= 0 {
		o.C = DefaultC
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	return o
}

// Model pairs a fitted vectorizer with its classifier. Fingerprint identifies
// the corpus and settings the model was trained with.
type Model struct {
	Vectorizer  *Vectorizer
	Classifier  *LogisticRegression
	Fingerprint string
}

// Prediction is the single most likely tag for an utterance.
type Prediction struct {
	Tag         string
	Probability float64
	Scores      map[string]float64
}

// Fingerprint identifies a training run: the corpus content plus the
// regularisation strength and iteration cap.
func Fingerprint(corpus *intents.Corpus, opts Options) string {
	opts = opts.withDefaults()
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00C=%g\x00max_iter=%d", corpus.Fingerprint(), opts.C, opts.MaxIter)
	return hex.EncodeToString(h.Sum(nil))
}

// Train fits a model on every (pattern, tag) pair of the corpus.
func Train(corpus *intents.Corpus, opts Options) (*Model, Report, error) {
	opts = opts.withDefaults()
	examples := corpus.Examples()
	if len(examples) == 0 {
		return nil, Report{}, errors.New("corpus has no training examples")
	}

	docs := make([]string, len(examples))
	for i, ex := range examples {
		docs[i] = ex.Text
	}
	vec := FitVectorizer(docs)

	classes := corpus.Tags()
	sort.Strings(classes)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	xs := make([]SparseVector, len(examples))
	ys := make([]int, len(examples))
	for i, ex := range examples {
		xs[i] = vec.Transform(ex.Text)
		ys[i] = classIdx[ex.Tag]
	}

	lr, rep, err := fitLogistic(xs, ys, classes, vec.Features(), opts.C, opts.MaxIter)
	if err != nil {
		return nil, rep, fmt.Errorf("fit classifier: %w", err)
	}
	return &Model{Vectorizer: vec, Classifier: lr, Fingerprint: Fingerprint(corpus, opts)}, rep, nil
}

// Predict vectorizes text and returns the highest-scoring tag. Every input maps
// to some known tag.
func (m *Model) Predict(text string) (Prediction, error) {
	if m == nil || m.Vectorizer == nil || m.Classifier == nil || len(m.Classifier.Classes) == 0 {
		return Prediction{}, ErrModelNotReady
	}
	best, probs := m.Classifier.Predict(m.Vectorizer.Transform(text))
	scores := make(map[string]float64, len(probs))
	for i, p := range probs {
		scores[m.Classifier.Classes[i]] = p
	}
	return Prediction{
		Tag:         m.Classifier.Classes[best],
		Probability: probs[best],
		Scores:      scores,
	}, nil
}

// Paths locates the two persisted artifacts.
type Paths struct {
	Vectorizer string
	Classifier string
}

func (p Paths) Exist() bool {
	return fileExists(p.Vectorizer) && fileExists(p.Classifier)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

type vectorizerArtifact struct {
	Fingerprint string
	Vectorizer  Vectorizer
}

type classifierArtifact struct {
	Fingerprint string
	Classifier  LogisticRegression
}

// Save writes the vectorizer and classifier as two gob files, replacing any
// previous artifacts.
func Save(m *Model, paths Paths) error {
	if m == nil || m.Vectorizer == nil || m.Classifier == nil {
		return ErrModelNotReady
	}
	if err := writeGob(paths.Vectorizer, vectorizerArtifact{Fingerprint: m.Fingerprint, Vectorizer: *m.Vectorizer}); err != nil {
		return fmt.Errorf("save vectorizer: %w", err)
	}
	if err := writeGob(paths.Classifier, classifierArtifact{Fingerprint: m.Fingerprint, Classifier: *m.Classifier}); err != nil {
		return fmt.Errorf("save classifier: %w", err)
	}
	return nil
}

// Load reads both artifacts back.
func Load(paths Paths) (*Model, error) {
	var va vectorizerArtifact
	if err := readGob(paths.Vectorizer, &va); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	var ca classifierArtifact
	if err := readGob(paths.Classifier, &ca); err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	if va.Fingerprint != ca.Fingerprint {
		return nil, errors.New("vectorizer and classifier artifacts come from different corpora")
	}
	if len(ca.Classifier.Classes) == 0 {
		return nil, errors.New("classifier artifact has no classes")
	}
	return &Model{Vectorizer: &va.Vectorizer, Classifier: &ca.Classifier, Fingerprint: va.Fingerprint}, nil
}

// EnsureModel loads persisted artifacts when they match the corpus and
// otherwise trains and persists a fresh model.
func EnsureModel(corpus *intents.Corpus, paths Paths, opts Options, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fp := Fingerprint(corpus, opts)

	if !opts.Force && paths.Exist() {
		m, err := Load(paths)
		switch {
		case err != nil:
			logger.Warn("model artifacts unreadable, retraining", zap.Error(err))
		case m.Fingerprint != fp:
			logger.Warn("model artifacts are stale, retraining",
				zap.String("artifact_fingerprint", m.Fingerprint),
				zap.String("corpus_fingerprint", fp))
		default:
			logger.Info("loaded model artifacts",
				zap.String("vectorizer", paths.Vectorizer),
				zap.String("classifier", paths.Classifier),
				zap.Int("classes", len(m.Classifier.Classes)))
			return m, nil
		}
	}

	m, rep, err := Train(corpus, opts)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.Int("examples", rep.Examples),
		zap.Int("features", rep.Features),
		zap.Int("classes", rep.Classes),
		zap.Int("iterations", rep.Iterations),
		zap.Float64("loss", rep.Loss),
		zap.String("status", rep.Status),
	}
	logger.Info("trained model", fields...)
	if rep.Warning != "" {
		logger.Warn("optimizer stopped early", zap.String("warning", rep.Warning))
	}
	if err := Save(m, paths); err != nil {
		return nil, err
	}
	return m, nil
}

func writeGob(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
