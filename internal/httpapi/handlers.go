package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"sonosctl/internal/upnp"
)

const (
	defaultStep = 5
	minStep     = 1
	maxStep     = 20
)

var (
	errRoomRequired   = errors.New("roomName is required")
	errStreamRequired = errors.New("streamUrl is required")
	errVolumeRequired = errors.New("volume is required")
	errStepRange      = fmt.Errorf("step must be between %d and %d", minStep, maxStep)
)

type response struct {
	Message string `json:"message"`
	Volume  *int   `json:"volume,omitempty"`
}

type roomRequest struct {
	RoomName string `json:"roomName"`
}

type streamRequest struct {
	RoomName  string `json:"roomName"`
	StreamURL string `json:"streamUrl"`
}

type stepRequest struct {
	RoomName string `json:"roomName"`
	Step     *int   `json:"step"`
}

type volumeRequest struct {
	RoomName string `json:"roomName"`
	Volume   *int   `json:"volume"`
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.Rooms(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.Refresh(r.Context()))
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.Devices(r.Context()))
}

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.resolve(w, r, r.URL.Query().Get("roomName"))
	if !ok {
		return
	}
	v, ok := s.ctl.GetVolume(r.Context(), dev.Address)
	if !ok {
		fail(w, r, "failed to get volume", dev)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "volume of " + dev.RoomName, Volume: &v})
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Volume == nil {
		badRequest(w, errVolumeRequired)
		return
	}
	dev, ok := s.resolve(w, r, req.RoomName)
	if !ok {
		return
	}
	if !s.ctl.SetVolume(r.Context(), dev.Address, *req.Volume) {
		fail(w, r, "failed to set volume", dev)
		return
	}
	v := upnp.ClampVolume(*req.Volume)
	writeJSON(w, http.StatusOK, response{Message: "volume set", Volume: &v})
}

func (s *Server) handleVolumeUp(w http.ResponseWriter, r *http.Request) {
	s.adjustVolume(w, r, s.ctl.VolumeUp, "volume increased")
}

func (s *Server) handleVolumeDown(w http.ResponseWriter, r *http.Request) {
	s.adjustVolume(w, r, s.ctl.VolumeDown, "volume decreased")
}

func (s *Server) adjustVolume(w http.ResponseWriter, r *http.Request, adjust func(ctx context.Context, address string, step int) bool, message string) {
	var req stepRequest
	if !decode(w, r, &req) {
		return
	}
	step := defaultStep
	if req.Step != nil {
		step = *req.Step
	}
	if step < minStep || step > maxStep {
		badRequest(w, errStepRange)
		return
	}
	dev, ok := s.resolve(w, r, req.RoomName)
	if !ok {
		return
	}
	if !adjust(r.Context(), dev.Address, step) {
		fail(w, r, "failed to change volume", dev)
		return
	}
	resp := response{Message: message}
	if v, ok := s.ctl.GetVolume(r.Context(), dev.Address); ok {
		resp.Volume = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlayStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if !decode(w, r, &req) {
		return
	}
	if req.StreamURL == "" {
		badRequest(w, errStreamRequired)
		return
	}
	dev, ok := s.resolve(w, r, req.RoomName)
	if !ok {
		return
	}
	if !s.ctl.PlayStream(r.Context(), dev.Address, req.StreamURL) {
		fail(w, r, "failed to play stream", dev)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "playing stream in " + dev.RoomName})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.transport(w, r, s.ctl.Play, "playback started", "failed to start playback")
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.transport(w, r, s.ctl.Stop, "playback stopped", "failed to stop playback")
}

func (s *Server) transport(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, address string) bool, okMsg, failMsg string) {
	var req roomRequest
	if !decode(w, r, &req) {
		return
	}
	dev, ok := s.resolve(w, r, req.RoomName)
	if !ok {
		return
	}
	if !action(r.Context(), dev.Address) {
		fail(w, r, failMsg, dev)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: okMsg})
}

// resolve maps a room name to its coordinator, answering 400 or 404 itself.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, roomName string) (upnp.Device, bool) {
	if roomName == "" {
		badRequest(w, errRoomRequired)
		return upnp.Device{}, false
	}
	dev, ok := s.rooms.Lookup(r.Context(), roomName)
	if !ok {
		writeJSON(w, http.StatusNotFound, response{Message: "room not found: " + roomName})
		return upnp.Device{}, false
	}
	return dev, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, fmt.Errorf("bad json: %w", err))
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
}

func fail(w http.ResponseWriter, r *http.Request, message string, dev upnp.Device) {
	hlog.FromRequest(r).Warn().Str("room", dev.RoomName).Str("address", dev.Address).Msg(message)
	writeJSON(w, http.StatusInternalServerError, response{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
