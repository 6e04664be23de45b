package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/book-expert/avatar-service/internal/core"
	"github.com/book-expert/avatar-service/internal/motion"
)

const maxBodyBytes = 1 << 20

type modeInfo struct {
	Mode           motion.Mode             `json:"mode"`
	Description    string                  `json:"description"`
	SwitchInterval *motion.Range           `json:"switch_interval,omitempty"`
	Weights        map[motion.Kind]float64 `json:"weights,omitempty"`
	NodRange       *motion.Range           `json:"nod_range,omitempty"`
	TiltRange      *motion.Range           `json:"tilt_range,omitempty"`
}

type modesResponse struct {
	Modes          []modeInfo            `json:"modes"`
	MinIntensity   float64               `json:"min_intensity"`
	MaxIntensity   float64               `json:"max_intensity"`
	CustomDefaults motion.CustomSettings `json:"custom_defaults"`
}

type previewRequest struct {
	Mode         motion.Mode            `json:"mode"`
	Intensity    float64                `json:"intensity"`
	Custom       *motion.CustomSettings `json:"custom"`
	Duration     float64                `json:"duration_seconds"`
	FPS          float64                `json:"fps"`
	Seed         uint64                 `json:"seed"`
	IncludePoses bool                   `json:"include_poses"`
}

type previewResponse struct {
	Timeline   *motion.Timeline  `json:"timeline"`
	Report     string            `json:"report"`
	FrameCount int               `json:"frame_count"`
	Seed       uint64            `json:"seed"`
	Poses      []motion.HeadPose `json:"poses,omitempty"`
}

var (
	errModeDisabled = errors.New("mode none generates no timeline")
	errNoSubmitter  = errors.New("video submission is not configured")
)

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listModes(w http.ResponseWriter, _ *http.Request) {
	modes := make([]modeInfo, 0, len(motion.Modes))

	for _, mode := range motion.Modes {
		info := modeInfo{
			Mode:           mode,
			Description:    "",
			SwitchInterval: nil,
			Weights:        nil,
			NodRange:       nil,
			TiltRange:      nil,
		}

		switch mode {
		case motion.ModeNone:
			info.Description = "no head motion"
		case motion.ModeCustom:
			info.Description = "caller-provided weights, interval and amplitude ranges"
		default:
			preset, ok := motion.PresetFor(mode)
			if !ok {
				continue
			}

			info.Description = preset.Description
			info.SwitchInterval = &preset.Config.SwitchInterval
			info.Weights = preset.Config.Weights
			info.NodRange = &preset.Config.NodRange
			info.TiltRange = &preset.Config.TiltRange
		}

		modes = append(modes, info)
	}

	writeJSON(w, http.StatusOK, modesResponse{
		Modes:          modes,
		MinIntensity:   motion.MinIntensity,
		MaxIntensity:   motion.MaxIntensity,
		CustomDefaults: motion.DefaultCustomSettings(),
	})
}

func (rt *Router) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	resp, err := rt.buildPreview(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) buildPreview(req previewRequest) (*previewResponse, error) {
	rt.applyDefaults(&req)

	mode, err := motion.ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}

	plan, err := motion.NewPlan(mode, req.Intensity, req.Custom)
	if err != nil {
		return nil, err
	}

	if !plan.Enabled {
		return nil, errModeDisabled
	}

	err = rt.defaults.Limits.Check(req.Duration, req.FPS)
	if err != nil {
		return nil, err
	}

	if req.Seed == 0 {
		req.Seed = rand.Uint64()
	}

	timeline, err := motion.GenerateTimeline(plan.Config, req.Duration, req.Seed)
	if err != nil {
		return nil, err
	}

	poses, err := motion.RenderPoseSequence(timeline, req.Duration, req.FPS)
	if err != nil {
		return nil, err
	}

	report := motion.Report(motion.ReportInput{
		WorkID:      fmt.Sprintf("preview-%d", req.Seed),
		GeneratedAt: time.Now(),
		Plan:        plan,
		Timeline:    timeline,
	})

	resp := &previewResponse{
		Timeline:   timeline,
		Report:     report,
		FrameCount: len(poses),
		Seed:       req.Seed,
		Poses:      nil,
	}

	if req.IncludePoses {
		resp.Poses = poses
	}

	return resp, nil
}

func (rt *Router) applyDefaults(req *previewRequest) {
	if req.Mode == "" {
		req.Mode = rt.defaults.Mode
	}

	if req.Intensity == 0 {
		req.Intensity = rt.defaults.Intensity
	}

	if req.FPS == 0 {
		req.FPS = rt.defaults.FPS
	}

	if req.Duration == 0 {
		req.Duration = rt.defaults.Duration
	}
}

func (rt *Router) submitVideo(w http.ResponseWriter, r *http.Request) {
	if rt.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, errNoSubmitter)

		return
	}

	var req core.SynthesisRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	reply, err := rt.submitter.Submit(r.Context(), req)
	if err != nil {
		rt.log.Error("Video submission failed: %v", err)
		writeError(w, http.StatusBadGateway, err)

		return
	}

	if reply.Error != "" {
		writeJSON(w, http.StatusUnprocessableEntity, reply)

		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	return decoder.Decode(target)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
