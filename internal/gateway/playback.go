package gateway

import (
	"bufio"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/mediaproxy"
	"github.com/streamforge/gateway/internal/model"
)

// handleStreamStart is POST /stream/start/{info_hash}: idempotently ensure a
// swarm session and prime downloads, returning immediately (spec §6).
func (g *Gateway) handleStreamStart(c *fiber.Ctx) error {
	infoHash := model.NormalizeInfoHash(c.Params("infoHash"))
	if !model.IsInfoHash(infoHash) {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash"))
	}
	if err := g.Swarm.Start(infoHash); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

type statusResponse struct {
	State          string  `json:"state"`
	Progress       float64 `json:"progress"`
	Peers          int     `json:"peers"`
	DownloadRate   int64   `json:"downloadRate"`
	UploadRate     int64   `json:"uploadRate"`
	VideoFile      string  `json:"video_file"`
	VideoSize      int64   `json:"videoSize"`
	Downloaded     int64   `json:"downloaded"`
	ReadyThreshold int64   `json:"readyThreshold"`
}

// handleStreamStatus is GET /stream/status/{info_hash} (spec §4.3).
func (g *Gateway) handleStreamStatus(c *fiber.Ctx) error {
	infoHash := model.NormalizeInfoHash(c.Params("infoHash"))
	if !model.IsInfoHash(infoHash) {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash"))
	}

	snap, err := g.Swarm.Status(infoHash)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(statusResponse{
		State:          string(snap.State),
		Progress:       snap.Progress,
		Peers:          snap.Peers,
		DownloadRate:   snap.DownloadRate,
		UploadRate:     snap.UploadRate,
		VideoFile:      snap.VideoFile,
		VideoSize:      snap.VideoSize,
		Downloaded:     snap.Downloaded,
		ReadyThreshold: snap.ReadyThreshold,
	})
}

// handleStreamVideo is GET /stream/video/{info_hash}: opens the backpressured
// media pipe, honoring Range (spec §4.4, §6). Exactly one of g.Proxy /
// g.Forwarder is configured depending on the deployment.
func (g *Gateway) handleStreamVideo(c *fiber.Ctx) error {
	infoHash := model.NormalizeInfoHash(c.Params("infoHash"))
	if !model.IsInfoHash(infoHash) {
		return writeError(c, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash"))
	}

	if g.Forwarder != nil {
		return g.streamViaForwarder(c, infoHash)
	}
	return g.streamViaLocalProxy(c, infoHash)
}

func (g *Gateway) streamViaForwarder(c *fiber.Ctx, infoHash string) error {
	upstream, err := g.Forwarder.Forward(c.Context(), infoHash, c.Get(fiber.HeaderRange))
	if err != nil {
		return writeError(c, err)
	}
	defer upstream.Body.Close()

	for k, vv := range upstream.Header {
		if mediaproxy.IsHopByHop(k) {
			continue
		}
		for _, v := range vv {
			c.Response().Header.Add(k, v)
		}
	}
	c.Status(upstream.StatusCode)
	return c.SendStream(upstream.Body)
}

func (g *Gateway) streamViaLocalProxy(c *fiber.Ctx, infoHash string) error {
	snap, err := g.Swarm.Status(infoHash)
	if err != nil {
		return writeError(c, err)
	}
	if snap.VideoFile == "" {
		return writeError(c, gwerrors.ErrSessionNotReady)
	}

	seekSeconds := seekSecondsFromRange(c.Get(fiber.HeaderRange), snap.VideoSize)

	session, err := g.Proxy.Open(c.Context(), snap.VideoFile, seekSeconds)
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Status(fiber.StatusOK)

	// SetBodyStreamWriter gives true backpressured piping: writes block until
	// the client reads, and an aborted connection unwinds the writer callback
	// without tearing down the swarm session (spec §5, §8 scenario F).
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		written, streamErr := session.Stream(w)
		if flushErr := w.Flush(); flushErr != nil && streamErr == nil {
			streamErr = flushErr
		}
		if closeErr := session.Close(written); closeErr != nil && written == 0 {
			log.Warnf("mediaproxy: %v", closeErr)
		}
		if streamErr != nil {
			log.Warnf("mediaproxy: stream for %s ended early: %v", snap.VideoFile, streamErr)
		}
	}))
	return nil
}

// seekSecondsFromRange approximates a byte-range request as a playback-time
// seek, since ffmpeg synthesizes range by position-seeking rather than byte-
// seeking the output buffer (spec §4.4). A rough average-bitrate estimate is
// acceptable here: exact seeking is out of scope (subtitle rendering and
// precision seeking are explicit non-goals).
func seekSecondsFromRange(rangeHeader string, videoSize int64) float64 {
	if rangeHeader == "" || videoSize <= 0 {
		return 0
	}
	const assumedBitrateBytesPerSecond = 1_250_000 // ~10 Mbps default estimate
	start := parseRangeStart(rangeHeader)
	if start <= 0 {
		return 0
	}
	return float64(start) / float64(assumedBitrateBytesPerSecond)
}

func parseRangeStart(rangeHeader string) int64 {
	const prefix = "bytes="
	if len(rangeHeader) <= len(prefix) || rangeHeader[:len(prefix)] != prefix {
		return 0
	}
	spec := rangeHeader[len(prefix):]
	dash := -1
	for i, r := range spec {
		if r == '-' {
			dash = i
			break
		}
	}
	if dash <= 0 {
		return 0
	}
	n, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
