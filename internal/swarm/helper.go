package swarm

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/model"
)

// SessionManager is the narrow contract the gateway and media proxy depend
// on, satisfied by both the embedded Manager and HelperClient (spec §1's
// "an external torrent-streaming helper process... the core may embed its
// own swarm client instead — both variants are specified").
type SessionManager interface {
	Start(infoHash string) error
	Status(infoHash string) (StatusSnapshot, error)
}

// Start is Manager's SessionManager implementation: ensure a session exists
// and return immediately (spec §6: "Returns immediately").
func (m *Manager) Start(infoHash string) error {
	_, err := m.EnsureSession(infoHash)
	return err
}

// HelperClient is the alternate deployment: an external torrent-streaming
// helper process exposing /stream/{hash} and /status/{hash}. It implements
// SessionManager by proxying to that process instead of embedding a swarm
// client.
type HelperClient struct {
	http *resty.Client
}

// NewHelperClient builds a HelperClient against baseURL.
func NewHelperClient(baseURL string) *HelperClient {
	return &HelperClient{http: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)}
}

// Start fires a non-blocking /stream/{hash} request, per spec §5's
// "Session start trigger (external helper): non-blocking (fire-and-forget)".
func (h *HelperClient) Start(infoHash string) error {
	if !model.IsInfoHash(infoHash) {
		return gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash")
	}
	go func() {
		_, _ = h.http.R().Get("/stream/" + infoHash)
	}()
	return nil
}

type helperStatusResponse struct {
	State          string  `json:"state"`
	Progress       float64 `json:"progress"`
	Peers          int     `json:"peers"`
	DownloadRate   int64   `json:"download_rate"`
	UploadRate     int64   `json:"upload_rate"`
	VideoFile      string  `json:"video_file"`
	VideoSize      int64   `json:"video_size"`
	Downloaded     int64   `json:"downloaded"`
	ReadyThreshold int64   `json:"ready_threshold"`
}

// Status polls GET /status/{hash} on the helper and translates its response
// into the gateway's StatusSnapshot shape (spec §4.3).
func (h *HelperClient) Status(infoHash string) (StatusSnapshot, error) {
	if !model.IsInfoHash(infoHash) {
		return StatusSnapshot{State: StateInvalid}, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var payload helperStatusResponse
	resp, err := h.http.R().SetContext(ctx).SetResult(&payload).Get("/status/" + infoHash)
	if err != nil {
		return StatusSnapshot{}, gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "helper status request failed", err)
	}
	if resp.StatusCode() == 404 {
		return StatusSnapshot{State: StateNotFound}, gwerrors.ErrSessionNotFound
	}
	if resp.IsError() {
		return StatusSnapshot{}, gwerrors.New(gwerrors.KindUpstreamUnavailable, "helper status error response")
	}

	return StatusSnapshot{
		State:          State(payload.State),
		Progress:       payload.Progress,
		Peers:          payload.Peers,
		DownloadRate:   payload.DownloadRate,
		UploadRate:     payload.UploadRate,
		VideoFile:      payload.VideoFile,
		VideoSize:      payload.VideoSize,
		Downloaded:     payload.Downloaded,
		ReadyThreshold: payload.ReadyThreshold,
	}, nil
}
