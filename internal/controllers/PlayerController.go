package controllers

import (
	"errors"
	"net/http"
	"songbook/internal/gate"
	"songbook/internal/playback"
	"songbook/internal/player"
	"songbook/internal/providers"
	"songbook/internal/services"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const (
	DeviceCookie       = "songbook_device"
	deviceCookieMaxAge = 400 * 24 * time.Hour
)

type PlayerController struct {
	logger  providers.Logger
	service services.PlayerServiceInterface
}

func NewPlayerController(logger providers.Logger, service services.PlayerServiceInterface) *PlayerController {
	return &PlayerController{
		logger:  logger,
		service: service,
	}
}

type mountRequest struct {
	URL string `json:"url"`
}

type pageRequest struct {
	Path string `json:"path"`
}

type submitRequest struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

type eventRequest struct {
	Path  string `json:"path"`
	Event string `json:"event"`
	player.Report
}

type selectRequest struct {
	Path  string `json:"path"`
	Index *int   `json:"index"`
}

type submitResponse struct {
	Outcome gate.Outcome    `json:"outcome"`
	State   player.Snapshot `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// deviceID returns the device cookie value, issuing a new one when it is
// missing or not a uuid.
func deviceID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(DeviceCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
		return false
	}
	return true
}

func (pc *PlayerController) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotMounted):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, player.ErrLocked):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, player.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: player.LoadFailedMessage})
	case errors.Is(err, player.ErrBadAddress):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		pc.logger.Errorf(providers.TypePost, "request failed: %s", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (pc *PlayerController) lookup(w http.ResponseWriter, r *http.Request, pagePath string) (*player.Player, bool) {
	if pagePath == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return nil, false
	}
	p, err := pc.service.Get(deviceID(w, r), pagePath)
	if err != nil {
		pc.fail(w, err)
		return nil, false
	}
	return p, true
}

func (pc *PlayerController) Mount(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}
	p, err := pc.service.Mount(r.Context(), deviceID(w, r), req.URL)
	if err != nil {
		pc.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// Gate is polled by the lock screen countdown.
func (pc *PlayerController) Gate(w http.ResponseWriter, r *http.Request) {
	p, ok := pc.lookup(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	d := p.Decision()
	if d == nil {
		pc.fail(w, player.ErrUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (pc *PlayerController) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	p, ok := pc.lookup(w, r, req.Path)
	if !ok {
		return
	}
	res, err := p.Submit(req.Code)
	if err != nil {
		pc.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Outcome: res.Outcome, State: p.Snapshot()})
}

func (pc *PlayerController) Event(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decode(w, r, &req) {
		return
	}
	ev, known := playback.ParseEvent(req.Event)
	if !known {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown event"})
		return
	}
	p, ok := pc.lookup(w, r, req.Path)
	if !ok {
		return
	}
	if err := p.Event(ev, req.Report); err != nil {
		pc.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (pc *PlayerController) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index is required"})
		return
	}
	p, ok := pc.lookup(w, r, req.Path)
	if !ok {
		return
	}
	if err := p.Select(*req.Index); err != nil {
		pc.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func (pc *PlayerController) Toggle(w http.ResponseWriter, r *http.Request) {
	pc.pageAction(w, r, (*player.Player).Toggle)
}

func (pc *PlayerController) Reset(w http.ResponseWriter, r *http.Request) {
	pc.pageAction(w, r, (*player.Player).ResetPlayback)
}

func (pc *PlayerController) pageAction(w http.ResponseWriter, r *http.Request, action func(*player.Player) error) {
	var req pageRequest
	if !decode(w, r, &req) {
		return
	}
	p, ok := pc.lookup(w, r, req.Path)
	if !ok {
		return
	}
	if err := action(p); err != nil {
		pc.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// Unload is sent with navigator.sendBeacon when the page goes away.
func (pc *PlayerController) Unload(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}
	if err := pc.service.Unmount(deviceID(w, r), req.Path); err != nil {
		pc.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
