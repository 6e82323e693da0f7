// internal/server/handler.go
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/modelportal/detection-service/internal/detector"
	"github.com/modelportal/detection-service/internal/framesource"
	"github.com/modelportal/detection-service/internal/metrics"
	"github.com/modelportal/detection-service/internal/middleware"
	"github.com/modelportal/detection-service/internal/model"
)

// maxFrameBytes caps the ingest body; webcam frames are far below this.
const maxFrameBytes = 8 << 20

// Handler exposes the detection loop to the portal front end over JSON.
type Handler struct {
	cfg      *model.Config
	runner   *detector.Runner
	frames   *framesource.LatestFrame
	settings *detector.Settings
}

// New creates a Handler wired to the given runner, frame cell and
// settings cell.
func New(cfg *model.Config, runner *detector.Runner, frames *framesource.LatestFrame, settings *detector.Settings) *Handler {
	return &Handler{
		cfg:      cfg,
		runner:   runner,
		frames:   frames,
		settings: settings,
	}
}

// Routes registers the API on the given router.
func (h *Handler) Routes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/detections", h.getDetections).Methods(http.MethodGet)
	api.HandleFunc("/status", h.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.putSettings).Methods(http.MethodPut)
	api.HandleFunc("/frame", h.postFrame).Methods(http.MethodPost)
	api.HandleFunc("/detector/start", h.startDetector).Methods(http.MethodPost)
	api.HandleFunc("/detector/stop", h.stopDetector).Methods(http.MethodPost)
	api.HandleFunc("/detector/retry", h.retryDetector).Methods(http.MethodPost)
}

func (h *Handler) getDetections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Latest())
}

type statusResponse struct {
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Running bool   `json:"running"`
	Model   struct {
		InputWidth  int `json:"input_width"`
		InputHeight int `json:"input_height"`
		Classes     int `json:"classes"`
	} `json:"model"`
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	state, loadErr := h.runner.Status()

	resp := statusResponse{
		State:   state.String(),
		Error:   loadErr,
		Running: h.runner.Running(),
	}
	resp.Model.InputWidth = h.cfg.InputWidth
	resp.Model.InputHeight = h.cfg.InputHeight
	resp.Model.Classes = len(h.cfg.Classes)

	writeJSON(w, http.StatusOK, resp)
}

type settingsRequest struct {
	ConfidenceThreshold *float32 `json:"confidence_threshold"`
	IoUThreshold        *float32 `json:"iou_threshold"`
	TickIntervalMs      *int     `json:"tick_interval_ms"`
}

type settingsResponse struct {
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	IoUThreshold        float32 `json:"iou_threshold"`
	TickIntervalMs      int64   `json:"tick_interval_ms"`
}

// putSettings applies the tunables the portal sliders expose. Omitted
// fields keep their current value; changes take effect on the next tick
// without restarting the loop.
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if req.ConfidenceThreshold != nil && (*req.ConfidenceThreshold < 0 || *req.ConfidenceThreshold > 1) {
		writeError(w, http.StatusBadRequest, "invalid_argument", "confidence_threshold must be in [0,1]")
		return
	}
	if req.IoUThreshold != nil && (*req.IoUThreshold < 0 || *req.IoUThreshold > 1) {
		writeError(w, http.StatusBadRequest, "invalid_argument", "iou_threshold must be in [0,1]")
		return
	}
	if req.TickIntervalMs != nil && *req.TickIntervalMs <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_argument", "tick_interval_ms must be positive")
		return
	}

	if req.ConfidenceThreshold != nil {
		h.settings.SetConfidenceThreshold(*req.ConfidenceThreshold)
	}
	if req.IoUThreshold != nil {
		h.settings.SetIoUThreshold(*req.IoUThreshold)
	}
	if req.TickIntervalMs != nil {
		h.settings.SetTickInterval(time.Duration(*req.TickIntervalMs) * time.Millisecond)
	}

	conf, iou, interval := h.settings.Snapshot()
	writeJSON(w, http.StatusOK, settingsResponse{
		ConfidenceThreshold: conf,
		IoUThreshold:        iou,
		TickIntervalMs:      interval.Milliseconds(),
	})
}

type frameResponse struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// postFrame ingests one encoded webcam frame from the browser and makes
// it the loop's current frame.
func (h *Handler) postFrame(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "empty frame body")
		return
	}
	if len(body) > maxFrameBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "frame_too_large", "frame exceeds size limit")
		return
	}

	frame, err := framesource.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_image", "failed to decode frame")
		return
	}

	h.frames.Put(frame)
	metrics.RecordFrameIngested()
	writeJSON(w, http.StatusOK, frameResponse{Width: frame.Width, Height: frame.Height})
}

func (h *Handler) startDetector(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Start(); err != nil {
		if errors.Is(err, detector.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "already_running", "detector is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "start_failed", err.Error())
		return
	}
	log.Printf("[%s] Detector started", middleware.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stopDetector(w http.ResponseWriter, r *http.Request) {
	h.runner.Stop()
	log.Printf("[%s] Detector stopped", middleware.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// retryDetector restarts the run after a terminal model-load failure.
func (h *Handler) retryDetector(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Retry(); err != nil {
		if errors.Is(err, detector.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "already_running", "detector is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "retry_failed", err.Error())
		return
	}
	log.Printf("[%s] Detector load retried", middleware.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
