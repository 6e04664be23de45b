// Package tts provides speech synthesis through the Minimax t2a_v2 HTTP API.
package tts

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/core"
)

// API endpoints and paths.
const (
	apiTextToAudio = "/v1/t2a_v2"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	headerTraceID       = "Trace-Id"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

const (
	// placeholderAPIKey is the literal left in sample configs and forms.
	placeholderAPIKey = "api_key"
	audioFormatMP3    = "mp3"
	traceIDUnknown    = "N/A"
)

// Log formats.
const (
	logFmtSynthesisStart = "Starting TTS synthesis: model=%s, voice=%s, text length=%d"
	logFmtUnknownModel   = "Model %s is not in the supported list, sending it as given"
	logFmtSynthesisDone  = "TTS synthesis succeeded: %d bytes, Trace-Id: %s"
	errFmtNonOKStatus    = "%w: %s, body: %s"
	errFmtAPIStatus      = "%w: code %d: %s"
)

var (
	// ErrAPIKeyInvalid indicates a missing or placeholder API key.
	ErrAPIKeyInvalid = errors.New("a valid minimax api key is required")
	// ErrTextEmpty indicates that there is no text to synthesize.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrNonOKStatus indicates an HTTP status other than 200.
	ErrNonOKStatus = errors.New("minimax service returned non-OK status")
	// ErrAPIStatus indicates a non-zero base_resp status code.
	ErrAPIStatus = errors.New("minimax api reported an error")
	// ErrMissingAudio indicates a response without audio data.
	ErrMissingAudio = errors.New("minimax response has no audio data")
)

// SupportedModels lists the speech models known to work with the t2a_v2 endpoint.
var SupportedModels = []string{
	"speech-01",
	"speech-01-hd",
	"speech-02",
	"speech-02-hd",
}

// voiceCatalogue maps voice ids to display names.
var voiceCatalogue = map[string]string{
	"male-qn-qingse":       "Young male, gentle",
	"male-qn-jingying":     "Male, elite",
	"male-qn-badao":        "Male, domineering",
	"male-qn-daxuesheng":   "Male, college student",
	"female-qn-qingse":     "Young female, gentle",
	"female-qn-jingying":   "Female, elite",
	"female-qn-badao":      "Female, domineering",
	"female-qn-daxuesheng": "Female, college student",
	"female-shaonv":        "Girl",
	"female-yujie":         "Mature young woman",
	"female-chengshu":      "Mature woman",
	"female-tianmei":       "Sweet female",
}

// Voices returns the voice catalogue as id to display name.
func Voices() map[string]string {
	return maps.Clone(voiceCatalogue)
}

type voiceSetting struct {
	VoiceID string `json:"voice_id"`
}

type textToAudioRequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	VoiceSetting voiceSetting `json:"voice_setting"`
}

type baseResponse struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type textToAudioResponse struct {
	Data *struct {
		Audio string `json:"audio"`
	} `json:"data"`
	BaseResp *baseResponse `json:"base_resp"`
}

// MinimaxClient implements core.SpeechSynthesizer against the Minimax API.
type MinimaxClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	voice      string
	log        *logger.Logger
}

// NewMinimaxClient creates a client. The configured key, model and voice are used when a
// request leaves them empty.
func NewMinimaxClient(cfg config.MinimaxConfig, log *logger.Logger) *MinimaxClient {
	return &MinimaxClient{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		voice:      cfg.DefaultVoice,
		log:        log,
	}
}

// VoiceName returns the display name of a voice, or the id itself for custom voices.
func (c *MinimaxClient) VoiceName(voiceID string) string {
	name, ok := voiceCatalogue[voiceID]
	if !ok {
		return voiceID
	}

	return name
}

// Synthesize converts text to MP3 audio.
func (c *MinimaxClient) Synthesize(ctx context.Context, req core.SpeechRequest) (*core.Speech, error) {
	req = c.withDefaults(req)

	inputErr := validateRequest(req)
	if inputErr != nil {
		return nil, inputErr
	}

	if !slices.Contains(SupportedModels, req.Model) {
		c.log.Warn(logFmtUnknownModel, req.Model)
	}

	c.log.Info(logFmtSynthesisStart, req.Model, req.Voice, len([]rune(req.Text)))

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to minimax at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read minimax response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtNonOKStatus, ErrNonOKStatus, resp.Status, string(body))
	}

	audio, err := decodeAudio(body)
	if err != nil {
		return nil, err
	}

	traceID := resp.Header.Get(headerTraceID)
	if traceID == "" {
		traceID = traceIDUnknown
	}

	c.log.Info(logFmtSynthesisDone, len(audio), traceID)

	return &core.Speech{
		Audio:   audio,
		Format:  audioFormatMP3,
		Model:   req.Model,
		Voice:   req.Voice,
		TraceID: traceID,
	}, nil
}

func (c *MinimaxClient) withDefaults(req core.SpeechRequest) core.SpeechRequest {
	if req.APIKey == "" {
		req.APIKey = c.apiKey
	}

	if req.Model == "" {
		req.Model = c.model
	}

	if req.Voice == "" {
		req.Voice = c.voice
	}

	req.Text = NormalizeNarration(req.Text)

	return req
}

func (c *MinimaxClient) newRequest(ctx context.Context, req core.SpeechRequest) (*http.Request, error) {
	payload, err := json.Marshal(textToAudioRequest{
		Model:        req.Model,
		Text:         req.Text,
		VoiceSetting: voiceSetting{VoiceID: req.Voice},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiTextToAudio,
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAuthorization, bearerPrefix+req.APIKey)
	httpReq.Header.Set(headerContentType, contentTypeJSON)

	return httpReq, nil
}

func validateRequest(req core.SpeechRequest) error {
	if req.APIKey == "" || req.APIKey == placeholderAPIKey {
		return ErrAPIKeyInvalid
	}

	if req.Text == "" {
		return ErrTextEmpty
	}

	return nil
}

// decodeAudio extracts the hex-encoded audio from a t2a_v2 response body.
func decodeAudio(body []byte) ([]byte, error) {
	var parsed textToAudioResponse

	err := json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal minimax response: %w", err)
	}

	if parsed.BaseResp != nil && parsed.BaseResp.StatusCode != 0 {
		return nil, fmt.Errorf(errFmtAPIStatus, ErrAPIStatus, parsed.BaseResp.StatusCode, parsed.BaseResp.StatusMsg)
	}

	if parsed.Data == nil || parsed.Data.Audio == "" {
		return nil, ErrMissingAudio
	}

	audio, err := hex.DecodeString(parsed.Data.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio hex: %w", err)
	}

	return audio, nil
}
