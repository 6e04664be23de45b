package tts_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/core"
	"github.com/book-expert/avatar-service/internal/tts"
)

const (
	testAPIKey   = "test-key"
	testText     = "Hello, world!"
	testAudioRaw = "ID3 fake mp3 payload"
)

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "tts-test.log")
	require.NoError(t, err)

	return log
}

func newClient(t *testing.T, serverURL string) *tts.MinimaxClient {
	t.Helper()

	return tts.NewMinimaxClient(config.MinimaxConfig{
		BaseURL:        serverURL,
		APIKey:         "",
		Model:          "speech-02-hd",
		DefaultVoice:   "male-qn-qingse",
		TimeoutSeconds: 5,
	}, createTestLogger(t))
}

func writeAudioResponse(t *testing.T, w http.ResponseWriter, audio string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Trace-Id", "trace-123")

	err := json.NewEncoder(w).Encode(map[string]any{
		"data":      map[string]any{"audio": hex.EncodeToString([]byte(audio))},
		"base_resp": map[string]any{"status_code": 0, "status_msg": "success"},
	})
	assert.NoError(t, err)
}

func TestMinimaxClient_Synthesize_Success(t *testing.T) {
	t.Parallel()

	var captured struct {
		Model        string `json:"model"`
		Text         string `json:"text"`
		VoiceSetting struct {
			VoiceID string `json:"voice_id"`
		} `json:"voice_setting"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/t2a_v2", r.URL.Path)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		writeAudioResponse(t, w, testAudioRaw)
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	speech, err := client.Synthesize(context.Background(), core.SpeechRequest{
		APIKey: testAPIKey,
		Model:  "",
		Voice:  "female-yujie",
		Text:   "  " + testText + "\n",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte(testAudioRaw), speech.Audio)
	assert.Equal(t, "mp3", speech.Format)
	assert.Equal(t, "trace-123", speech.TraceID)

	assert.Equal(t, "speech-02-hd", captured.Model, "empty model falls back to the configured one")
	assert.Equal(t, testText, captured.Text, "text is trimmed")
	assert.Equal(t, "female-yujie", captured.VoiceSetting.VoiceID)
}

func TestMinimaxClient_Synthesize_InvalidInput(t *testing.T) {
	t.Parallel()

	client := newClient(t, "http://127.0.0.1:1")

	cases := map[string]struct {
		req core.SpeechRequest
		err error
	}{
		"missing key":     {req: core.SpeechRequest{APIKey: "", Text: testText}, err: tts.ErrAPIKeyInvalid},
		"placeholder key": {req: core.SpeechRequest{APIKey: "api_key", Text: testText}, err: tts.ErrAPIKeyInvalid},
		"blank text":      {req: core.SpeechRequest{APIKey: testAPIKey, Text: "   "}, err: tts.ErrTextEmpty},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := client.Synthesize(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestMinimaxClient_Synthesize_ServiceErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		handler http.HandlerFunc
		err     error
	}{
		"non-OK status": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			err: tts.ErrNonOKStatus,
		},
		"api status code": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"base_resp":{"status_code":1004,"status_msg":"authentication failed"}}`))
			},
			err: tts.ErrAPIStatus,
		},
		"missing audio": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":{},"base_resp":{"status_code":0}}`))
			},
			err: tts.ErrMissingAudio,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := newClient(t, server.URL).Synthesize(context.Background(), core.SpeechRequest{
				APIKey: testAPIKey,
				Text:   testText,
			})
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestMinimaxClient_Synthesize_BadHex(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"audio":"zz"},"base_resp":{"status_code":0}}`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Synthesize(context.Background(), core.SpeechRequest{
		APIKey: testAPIKey,
		Text:   testText,
	})
	require.Error(t, err)
}

func TestMinimaxClient_Synthesize_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeAudioResponse(t, w, testAudioRaw)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newClient(t, server.URL).Synthesize(ctx, core.SpeechRequest{APIKey: testAPIKey, Text: testText})
	require.Error(t, err)
}

func TestVoices(t *testing.T) {
	t.Parallel()

	client := newClient(t, "http://127.0.0.1:1")

	voices := tts.Voices()
	assert.Len(t, voices, 12)
	assert.Equal(t, voices["female-yujie"], client.VoiceName("female-yujie"))
	assert.Equal(t, "my-cloned-voice", client.VoiceName("my-cloned-voice"))

	voices["female-yujie"] = "changed"
	assert.NotEqual(t, "changed", client.VoiceName("female-yujie"))

	assert.Contains(t, tts.SupportedModels, "speech-02-hd")
}
