package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"intent-chatter/internal/intents"
)

func testCorpus(t *testing.T) *intents.Corpus {
	t.Helper()
	c, err := intents.New([]intents.Intent{
		{Tag: "greeting", Patterns: []string{"hi", "hello", "hello there", "hey hi"}, Responses: []string{"Hello!", "Hi there!"}},
		{Tag: "goodbye", Patterns: []string{"bye", "goodbye", "see you later", "bye bye"}, Responses: []string{"Goodbye!"}},
		{Tag: "thanks", Patterns: []string{"thanks", "thank you", "thanks a lot", "many thanks"}, Responses: []string{"You're welcome."}},
		{Tag: "weather", Patterns: []string{"what is the weather", "is it raining", "weather forecast today", "will it be sunny"}, Responses: []string{"Look outside."}},
	})
	require.NoError(t, err)
	return c
}

func testPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		Vectorizer: filepath.Join(dir, "models", "vectorizer.gob"),
		Classifier: filepath.Join(dir, "models", "chatbot_model.gob"),
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "don", "42"}, Tokenize("Hello, WORLD! I don't a 42"))
	assert.Empty(t, Tokenize("a b c !"))
}

func TestVectorizerIDFAndNormalisation(t *testing.T) {
	v := FitVectorizer([]string{"hello there", "hello"})
	require.Equal(t, map[string]int{"hello": 0, "there": 1}, v.Vocabulary)

	// smoothed idf: ln((1+n)/(1+df)) + 1
	assert.InDelta(t, 1.0, v.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, v.IDF[1], 1e-12)

	x := v.Transform("there there hello unknown")
	require.Equal(t, []int{0, 1}, x.Indices)
	var norm float64
	for _, val := range x.Values {
		norm += val * val
	}
	assert.InDelta(t, 1.0, norm, 1e-12)
	assert.Greater(t, x.Values[1], x.Values[0])

	empty := v.Transform("nothing known")
	assert.Empty(t, empty.Indices)
}

func TestTrainPatternsMapToOwnTag(t *testing.T) {
	c := testCorpus(t)
	m, rep, err := Train(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, 16, rep.Examples)
	assert.Equal(t, 4, rep.Classes)
	assert.Equal(t, []string{"goodbye", "greeting", "thanks", "weather"}, m.Classifier.Classes)

	for _, ex := range c.Examples() {
		p, err := m.Predict(ex.Text)
		require.NoError(t, err)
		assert.Equal(t, ex.Tag, p.Tag, "pattern %q", ex.Text)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	c := testCorpus(t)
	a, _, err := Train(c, Options{})
	require.NoError(t, err)
	b, _, err := Train(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Classifier.Weights, b.Classifier.Weights)
	assert.Equal(t, a.Classifier.Intercepts, b.Classifier.Intercepts)
}

func TestPredictGreetingScenario(t *testing.T) {
	c, err := intents.New([]intents.Intent{
		{Tag: "greeting", Patterns: []string{"hi", "hello"}, Responses: []string{"Hello!", "Hi there!"}},
		{Tag: "goodbye", Patterns: []string{"bye", "goodbye"}, Responses: []string{"Bye!"}},
	})
	require.NoError(t, err)
	m, _, err := Train(c, Options{})
	require.NoError(t, err)

	p, err := m.Predict("hello")
	require.NoError(t, err)
	assert.Equal(t, "greeting", p.Tag)
	assert.Greater(t, p.Probability, 0.5)
	assert.InDelta(t, 1.0, p.Scores["greeting"]+p.Scores["goodbye"], 1e-9)
}

func TestPredictOutOfVocabularyStillReturnsTag(t *testing.T) {
	c := testCorpus(t)
	m, _, err := Train(c, Options{})
	require.NoError(t, err)

	p, err := m.Predict("zxqv plorb")
	require.NoError(t, err)
	_, ok := c.Lookup(p.Tag)
	assert.True(t, ok, "unexpected tag %q", p.Tag)

	p, err = m.Predict("")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Tag)
}

func TestPredictWithoutModel(t *testing.T) {
	var m *Model
	_, err := m.Predict("hi")
	assert.True(t, errors.Is(err, ErrModelNotReady))

	_, err = (&Model{}).Predict("hi")
	assert.True(t, errors.Is(err, ErrModelNotReady))
}

func TestSingleIntentCorpus(t *testing.T) {
	c, err := intents.New([]intents.Intent{{Tag: "only", Patterns: []string{"anything"}, Responses: []string{"ok"}}})
	require.NoError(t, err)
	m, rep, err := Train(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SingleClass", rep.Status)
	p, err := m.Predict("whatever")
	require.NoError(t, err)
	assert.Equal(t, "only", p.Tag)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := testCorpus(t)
	paths := testPaths(t)
	m, _, err := Train(c, Options{})
	require.NoError(t, err)
	require.NoError(t, Save(m, paths))
	require.True(t, paths.Exist())

	loaded, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, m.Fingerprint, loaded.Fingerprint)

	inputs := []string{"hello", "bye now", "thanks so much", "is it sunny", "completely unrelated", ""}
	for _, in := range inputs {
		want, err := m.Predict(in)
		require.NoError(t, err)
		got, err := loaded.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, want.Tag, got.Tag, "input %q", in)
		assert.InDelta(t, want.Probability, got.Probability, 1e-12)
	}
}

func TestLoadRejectsMismatchedArtifacts(t *testing.T) {
	paths := testPaths(t)
	a, _, err := Train(testCorpus(t), Options{})
	require.NoError(t, err)
	require.NoError(t, Save(a, paths))

	other, err := intents.New([]intents.Intent{
		{Tag: "x", Patterns: []string{"alpha"}, Responses: []string{"1"}},
		{Tag: "y", Patterns: []string{"beta"}, Responses: []string{"2"}},
	})
	require.NoError(t, err)
	b, _, err := Train(other, Options{})
	require.NoError(t, err)
	require.NoError(t, writeGob(paths.Classifier, classifierArtifact{Fingerprint: b.Fingerprint, Classifier: *b.Classifier}))

	_, err = Load(paths)
	assert.Error(t, err)
}

func TestEnsureModelTrainsThenLoads(t *testing.T) {
	c := testCorpus(t)
	paths := testPaths(t)

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	first, err := EnsureModel(c, paths, Options{}, logger)
	require.NoError(t, err)
	require.True(t, paths.Exist())
	assert.Equal(t, 1, logs.FilterMessage("trained model").Len())

	second, err := EnsureModel(c, paths, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("loaded model artifacts").Len())
	assert.Equal(t, first.Classifier.Weights, second.Classifier.Weights)

	_, err = EnsureModel(c, paths, Options{Force: true}, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("trained model").Len())
}

func TestEnsureModelRetrainsStaleOrCorruptArtifacts(t *testing.T) {
	paths := testPaths(t)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	_, err := EnsureModel(testCorpus(t), paths, Options{}, logger)
	require.NoError(t, err)

	changed, err := intents.New([]intents.Intent{
		{Tag: "greeting", Patterns: []string{"hello"}, Responses: []string{"Hi"}},
		{Tag: "food", Patterns: []string{"pizza please"}, Responses: []string{"Yum"}},
	})
	require.NoError(t, err)
	m, err := EnsureModel(changed, paths, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(changed, Options{}), m.Fingerprint)
	assert.Equal(t, 1, logs.FilterMessage("model artifacts are stale, retraining").Len())

	require.NoError(t, os.WriteFile(paths.Vectorizer, []byte("garbage"), 0o644))
	m, err = EnsureModel(changed, paths, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("model artifacts unreadable, retraining").Len())
	p, err := m.Predict("pizza")
	require.NoError(t, err)
	assert.Equal(t, "food", p.Tag)
}

func TestEnsureModelRetrainsWhenSettingsChange(t *testing.T) {
	c := testCorpus(t)
	paths := testPaths(t)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	weak, err := EnsureModel(c, paths, Options{C: 1}, logger)
	require.NoError(t, err)

	strong, err := EnsureModel(c, paths, Options{C: 100}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("model artifacts are stale, retraining").Len())
	assert.Equal(t, 2, logs.FilterMessage("trained model").Len())
	assert.NotEqual(t, weak.Fingerprint, strong.Fingerprint)
	assert.NotEqual(t, weak.Classifier.Weights, strong.Classifier.Weights)

	fresh, _, err := Train(c, Options{C: 100})
	require.NoError(t, err)
	assert.Equal(t, fresh.Classifier.Intercepts, strong.Classifier.Intercepts)

	_, err = EnsureModel(c, paths, Options{C: 100, MaxIter: 50}, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("model artifacts are stale, retraining").Len())

	_, err = EnsureModel(c, paths, Options{C: 100, MaxIter: 50}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("loaded model artifacts").Len())
}

func TestTrainOnShippedCorpus(t *testing.T) {
	c, err := intents.Load(filepath.Join("..", "..", "data", "intents.json"))
	require.NoError(t, err)

	m, rep, err := Train(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, c.Len(), rep.Classes)
	assert.Empty(t, rep.Warning)

	examples := c.Examples()
	hits := 0
	for _, ex := range examples {
		p, err := m.Predict(ex.Text)
		require.NoError(t, err)
		if p.Tag == ex.Tag {
			hits++
		}
	}
	assert.GreaterOrEqual(t, float64(hits)/float64(len(examples)), 0.9)

	for in, want := range map[string]string{
		"hello":          "greeting",
		"bye":            "goodbye",
		"thank you":      "thanks",
		"tell me a joke": "joke",
		"is it raining":  "weather",
	} {
		p, err := m.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, want, p.Tag, "input %q", in)
	}
}
