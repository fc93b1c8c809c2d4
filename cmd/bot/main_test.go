package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-chatter/internal/chat"
)

const testCorpus = `{"intents": [
  {"tag": "greeting", "patterns": ["hi", "hello", "hey there"], "responses": ["Hello!"]},
  {"tag": "goodbye", "patterns": ["bye", "goodbye", "see you later"], "responses": ["Goodbye!"]},
  {"tag": "thanks", "patterns": ["thanks", "thank you"], "responses": ["You're welcome!"]}
]}`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "intents.json")
	require.NoError(t, os.WriteFile(corpus, []byte(testCorpus), 0o644))

	t.Setenv("CHATBOT_CORPUS_PATH", corpus)
	t.Setenv("CHATBOT_MODEL_PATH", filepath.Join(dir, "model.gob"))
	t.Setenv("CHATBOT_VECTORIZER_PATH", filepath.Join(dir, "vectorizer.gob"))
	t.Setenv("CHATBOT_LOG_FILE", filepath.Join(dir, "chat_log.csv"))
	t.Setenv("CHATBOT_APP_LOG", filepath.Join(dir, "logs", "chatbot.log"))
	t.Setenv("CHATBOT_LOG_BACKEND", "csv")
	t.Setenv("CHATBOT_RESPONSE_SEED", "1")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainWritesArtifacts(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "train")
	require.NoError(t, err)
	assert.Contains(t, out, "model ready: 3 intents")
	assert.FileExists(t, filepath.Join(dir, "model.gob"))
	assert.FileExists(t, filepath.Join(dir, "vectorizer.gob"))

	out, err = run(t, "train", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "model ready")
}

func TestAskThenHistory(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversation history available.")

	out, err = run(t, "ask", "--tag", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "[greeting ")
	assert.Contains(t, out, "Chatbot: Hello!")

	out, err = run(t, "ask", "bye")
	require.NoError(t, err)
	assert.Contains(t, out, "Chatbot: Goodbye!")
	assert.Contains(t, out, "Thank you for chatting with me.")

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "User: hello\nChatbot: Hello!\nTimestamp: ")
	assert.Contains(t, out, "User: bye\nChatbot: Goodbye!")

	out, err = run(t, "history", "-n", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "User: hello")
	assert.Equal(t, 1, strings.Count(out, "User: "))
}

func TestAskRejectsBlankMessage(t *testing.T) {
	dir := setupEnv(t)

	for _, msg := range []string{"   ", ""} {
		out, err := run(t, "ask", msg)
		require.ErrorIs(t, err, chat.ErrEmptyInput)
		assert.NotContains(t, out, "Chatbot:")
	}

	data, err := os.ReadFile(filepath.Join(dir, "chat_log.csv"))
	require.NoError(t, err)
	assert.Equal(t, "User Input,Chatbot Response,Timestamp\n", string(data))
}

func TestStatsJSON(t *testing.T) {
	setupEnv(t)

	for _, msg := range []string{"hello", "thanks", "bye"} {
		_, err := run(t, "ask", msg)
		require.NoError(t, err)
	}

	out, err := run(t, "stats", "--json")
	require.NoError(t, err)

	var stats struct {
		TotalTurns int            `json:"total_turns"`
		Farewells  int            `json:"farewells"`
		ByTag      map[string]int `json:"by_tag"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalTurns)
	assert.Equal(t, 1, stats.Farewells)
	assert.Equal(t, map[string]int{"greeting": 1, "thanks": 1, "goodbye": 1}, stats.ByTag)
}

func TestStatsRejectsBadDate(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "stats", "--date", "19-10-2026")
	require.Error(t, err)
}

func TestTelegramRequiresToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := run(t, "telegram")
	require.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
}

func TestInvalidConfigFailsSetup(t *testing.T) {
	setupEnv(t)
	t.Setenv("CHATBOT_LOG_BACKEND", "postgres")
	_, err := run(t, "history")
	require.ErrorContains(t, err, "unknown log backend")
}
