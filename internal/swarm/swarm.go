// Package swarm is the session manager (spec §4.3): a process-wide registry
// of info-hash-keyed torrent sessions tuned for sequential streaming,
// grounded on the anacrolix/torrent engine pattern seen in the retrieval
// pack's TorrX example (other_examples) — the only source anywhere in the
// pack that drives anacrolix/torrent directly.
package swarm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/gofiber/fiber/v2/log"
	mh "github.com/multiformats/go-multihash"

	"github.com/streamforge/gateway/internal/gwerrors"
	"github.com/streamforge/gateway/internal/model"
	"github.com/streamforge/gateway/internal/torrentfile"
)

// cacheKey derives a stable content-addressed registry key from an info-hash,
// generalizing the teacher's raw-SHA1 generateGID to a self-describing
// multihash so the registry key format isn't tied to SHA1 specifically.
// infoHash is always pre-validated 40-char hex by model.IsInfoHash, so Sum
// cannot fail here.
func cacheKey(infoHash string) string {
	raw := make([]byte, sha1ByteLen)
	for i := 0; i < sha1ByteLen; i++ {
		fmt.Sscanf(infoHash[i*2:i*2+2], "%02x", &raw[i])
	}
	sum, err := mh.Sum(raw, mh.SHA1, sha1ByteLen)
	if err != nil {
		return infoHash
	}
	return sum.B58String()
}

const sha1ByteLen = 20

// State is the session's lifecycle state (spec §3, §4.3).
type State string

const (
	StateMetadata   State = "metadata"
	StateBuffering  State = "buffering"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateEvicted    State = "evicted"
	StateNotFound   State = "not_found"
	StateInvalid    State = "invalid"
)

// Settings are the swarm-client tuning values spec §4.3 requires, applied to
// every session's anacrolix/torrent client.
type Settings struct {
	ConnsPerSecond      int
	MaxConnections      int
	HandshakeTimeout    time.Duration
	EstablishedConnsBoost int
	DiskCacheBytes      int64
	RequestLookahead    time.Duration
}

// DefaultSettings implements the settings table in spec §4.3.
func DefaultSettings() Settings {
	return Settings{
		ConnsPerSecond:        500,
		MaxConnections:        800,
		HandshakeTimeout:      7 * time.Second,
		EstablishedConnsBoost: 50,
		DiskCacheBytes:        128 << 20,
		RequestLookahead:      1 * time.Second,
	}
}

// DefaultTrackers is the static tiered tracker list used to join a swarm from
// a bare info-hash (spec §4.3 "≈22 UDP+HTTP trackers, tiered for reliability").
var DefaultTrackers = [][]string{
	{
		"udp://tracker.opentrackr.org:1337/announce",
		"udp://open.tracker.cl:1337/announce",
		"udp://tracker.openbittorrent.com:6969/announce",
		"udp://tracker.torrent.eu.org:451/announce",
		"udp://exodus.desync.com:6969/announce",
		"udp://tracker.dler.org:6969/announce",
		"udp://opentracker.i2p.rocks:6969/announce",
		"udp://tracker-udp.gbitt.info:80/announce",
	},
	{
		"udp://9.rarbg.com:2810/announce",
		"udp://tracker.tiny-vps.com:6969/announce",
		"udp://tracker.moeking.me:6969/announce",
		"udp://explodie.org:6969/announce",
		"udp://tracker.theoks.net:6969/announce",
		"udp://retracker01-msk-virt.corbina.net:80/announce",
		"udp://tracker.skyts.net:6969/announce",
	},
	{
		"https://tracker.gbitt.info:443/announce",
		"https://tracker1.520.jp:443/announce",
		"http://tracker.gbitt.info:80/announce",
		"http://tracker.files.fm:6969/announce",
		"http://tracker.openbittorrent.com:80/announce",
		"http://bt.okmp3.ru:2710/announce",
		"udp://tracker.bittor.pw:1337/announce",
	},
}

func flatTrackers() []string {
	var out []string
	for _, tier := range DefaultTrackers {
		out = append(out, tier...)
	}
	return out
}

// videoExtensions is the closed set of extensions eligible for selection as
// the chosen video file (spec §4.3).
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".webm": true,
	".mov": true, ".m4v": true, ".ts": true,
}

const (
	maxSessionAge  = 2 * time.Hour
	evictionSweep  = 5 * time.Minute
	readinessFloor = 3 << 20    // 3 MB absolute floor
	readinessPct   = 0.02       // 2% for files < smallFileLimit
	smallFileLimit = 150 << 20  // 150 MB
	headBudget     = 5 << 20    // ~5 MB at priority 7
	tailBudget     = 2 << 20    // ~2 MB at priority 4

	// assumedBitrate converts Settings.RequestLookahead (a playback-time
	// budget) into a byte budget for the "next" priority band, since
	// anacrolix/torrent's piece priorities are byte-range based, not
	// time-based. 2MB/s covers a typical 1080p stream without
	// overshooting into needless prefetch.
	assumedBitrate = 2 << 20
)

// VideoFile is the chosen playable file within a torrent (spec §3).
type VideoFile struct {
	Index int
	Path  string
	Size  int64
}

// Session is one per-info-hash torrent session (spec §3).
type Session struct {
	InfoHash  string
	CreatedAt time.Time

	mu         sync.Mutex
	handle     *torrent.Torrent
	state      State
	videoFile  *VideoFile
	lastAccess time.Time

	// rate sampling: Status computes bytes-per-second deltas across calls,
	// grounded on the teacher pattern of sampling cumulative torrent.Stats
	// counters rather than reporting them as instantaneous rates.
	rateSampledAt time.Time
	bytesRead     int64
	bytesWritten  int64
}

// StatusSnapshot is the §4.3 status contract payload.
type StatusSnapshot struct {
	State           State
	Progress        float64
	Peers           int
	DownloadRate    int64
	UploadRate      int64
	VideoFile       string
	VideoSize       int64
	Downloaded      int64
	ReadyThreshold  int64
}

// Manager owns the session registry and the embedded anacrolix/torrent client.
type Manager struct {
	client   *torrent.Client
	settings Settings

	mu       sync.RWMutex
	sessions map[string]*Session

	downloadDir string

	stopReaper context.CancelFunc
}

// New builds a Manager with an embedded swarm client rooted at downloadDir.
func New(downloadDir string, settings Settings) (*Manager, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("swarm: create download dir: %w", err)
	}

	cfg := torrent.NewDefaultClientConfig()
	cfg.DataDir = downloadDir
	cfg.EstablishedConnsPerTorrent = settings.MaxConnections
	cfg.HandshakesTimeout = settings.HandshakeTimeout
	cfg.TorrentPeersHighWater = settings.MaxConnections
	cfg.TorrentPeersLowWater = settings.EstablishedConnsBoost

	// anacrolix/torrent has no literal new-connections-per-second limiter;
	// HalfOpenConnsPerTorrent/TotalHalfOpenConns bound how many handshakes can
	// be outstanding at once, which is the closest real throttle on
	// connection churn, so ConnsPerSecond is applied there.
	cfg.HalfOpenConnsPerTorrent = settings.ConnsPerSecond
	cfg.TotalHalfOpenConns = settings.ConnsPerSecond

	// MaxAllocPeerRequestDataPerConn is the closest ClientConfig knob to a
	// disk/response cache budget: it bounds the in-flight piece data each
	// peer connection may buffer before backpressure kicks in.
	cfg.MaxAllocPeerRequestDataPerConn = settings.DiskCacheBytes

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("swarm: new torrent client: %w", err)
	}

	m := &Manager{
		client:      client,
		settings:    settings,
		sessions:    make(map[string]*Session),
		downloadDir: downloadDir,
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stopReaper = cancel
	go m.evictionLoop(ctx)

	return m, nil
}

// Close stops the eviction sweep and the underlying swarm client.
func (m *Manager) Close() {
	if m.stopReaper != nil {
		m.stopReaper()
	}
	m.client.Close()
}

// EnsureSession is idempotent: a concurrent call for the same info-hash
// always returns the single underlying session (spec §4.3, invariant #3).
func (m *Manager) EnsureSession(infoHash string) (*Session, error) {
	if !model.IsInfoHash(infoHash) {
		return nil, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash")
	}

	key := cacheKey(infoHash)

	m.mu.RLock()
	if s, ok := m.sessions[key]; ok {
		m.mu.RUnlock()
		s.touch()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock: another goroutine may have won the race.
	if s, ok := m.sessions[key]; ok {
		s.touch()
		return s, nil
	}

	magnetURI, err := torrentfile.BuildMagnet(infoHash, "", flatTrackers())
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInvalidInput, "build magnet uri", err)
	}

	t, err := m.client.AddMagnet(magnetURI)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnknown, "add magnet to swarm client", err)
	}
	t.SetMaxEstablishedConns(m.settings.MaxConnections)
	t.AllowDataDownload()
	t.AllowDataUpload()

	now := time.Now()
	s := &Session{
		InfoHash:   infoHash,
		CreatedAt:  now,
		lastAccess: now,
		handle:     t,
		state:      StateMetadata,
	}
	m.sessions[key] = s

	go m.primeSession(s)

	return s, nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// sampleRates turns the cumulative byte counters torrent.Stats reports into
// bytes/sec deltas across successive Status calls. Caller must hold s.mu.
func (s *Session) sampleRates(bytesRead, bytesWritten int64) (downloadRate, uploadRate int64) {
	now := time.Now()
	if s.rateSampledAt.IsZero() {
		s.rateSampledAt, s.bytesRead, s.bytesWritten = now, bytesRead, bytesWritten
		return 0, 0
	}

	dt := now.Sub(s.rateSampledAt).Seconds()
	deltaRead := bytesRead - s.bytesRead
	deltaWritten := bytesWritten - s.bytesWritten
	s.rateSampledAt, s.bytesRead, s.bytesWritten = now, bytesRead, bytesWritten

	if dt <= 0 || deltaRead < 0 || deltaWritten < 0 {
		return 0, 0
	}
	return int64(float64(deltaRead) / dt), int64(float64(deltaWritten) / dt)
}

// primeSession waits for metadata and, once available, selects the video
// file and programs piece priorities exactly once (spec §4.3).
func (m *Manager) primeSession(s *Session) {
	select {
	case <-s.handle.GotInfo():
	case <-time.After(10 * time.Minute):
		log.Warnf("swarm: metadata wait timed out for %s", s.InfoHash)
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		return
	}

	if err := m.selectVideoFile(s); err != nil {
		log.Warnf("swarm: %s: %v", s.InfoHash, err)
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		return
	}

	m.programPriorities(s)
	s.mu.Lock()
	if s.state == StateMetadata {
		s.state = StateBuffering
	}
	s.mu.Unlock()
}

func (m *Manager) selectVideoFile(s *Session) error {
	files := s.handle.Files()
	var best *torrent.File
	for _, f := range files {
		ext := filepath.Ext(f.DisplayPath())
		if !videoExtensions[ext] {
			continue
		}
		if best == nil || f.Length() > best.Length() {
			best = f
		}
	}
	if best == nil {
		return gwerrors.ErrFileNotFound
	}

	s.mu.Lock()
	s.videoFile = &VideoFile{
		Index: fileIndex(files, best),
		Path:  filepath.Join(m.downloadDir, best.Path()),
		Size:  best.Length(),
	}
	s.mu.Unlock()
	return nil
}

func fileIndex(files []*torrent.File, target *torrent.File) int {
	for i, f := range files {
		if f == target {
			return i
		}
	}
	return -1
}

// programPriorities implements the piece-priority bands in spec §4.3: 0 for
// non-video files, 1 baseline across the chosen file, 7 for the first ~5MB,
// 6 for the next ~10MB, 4 for the last ~2MB (seek/duration metadata).
func (m *Manager) programPriorities(s *Session) {
	s.mu.Lock()
	vf := s.videoFile
	s.mu.Unlock()
	if vf == nil {
		return
	}

	t := s.handle
	for _, f := range t.Files() {
		if f.Path() == filepath.Base(vf.Path) || f.Length() == vf.Size {
			f.SetPriority(torrent.PiecePriorityNormal)
		} else {
			f.SetPriority(torrent.PiecePriorityNone)
		}
	}

	info := t.Info()
	if info == nil {
		return
	}
	pieceLen := info.PieceLength
	if pieceLen <= 0 {
		return
	}

	var target *torrent.File
	for _, f := range t.Files() {
		if f.Length() == vf.Size {
			target = f
			break
		}
	}
	if target == nil {
		return
	}

	startPiece := int(target.Offset() / pieceLen)
	endPiece := int((target.Offset() + target.Length()) / pieceLen)

	headPieces := int(headBudget / pieceLen)
	if headPieces < 1 {
		headPieces = 1
	}
	lookaheadBytes := int64(m.settings.RequestLookahead.Seconds() * assumedBitrate)
	nextPieces := headPieces*2 + int(lookaheadBytes/pieceLen)
	tailPieces := int(tailBudget / pieceLen)
	if tailPieces < 1 {
		tailPieces = 1
	}

	// Sequential-download mode isn't a single toggle in anacrolix/torrent;
	// it's expressed exactly this way, by descending per-piece priority
	// bands set once across the chosen file (Now near the read head, High
	// within the lookahead window, Readahead at the tail for
	// duration/seek metadata, Normal everywhere else).
	for p := startPiece; p <= endPiece; p++ {
		piece := t.Piece(p)
		switch {
		case p < startPiece+headPieces:
			piece.SetPriority(torrent.PiecePriorityNow)
		case p < startPiece+headPieces+nextPieces:
			piece.SetPriority(torrent.PiecePriorityHigh)
		case p > endPiece-tailPieces:
			piece.SetPriority(torrent.PiecePriorityReadahead)
		default:
			piece.SetPriority(torrent.PiecePriorityNormal)
		}
	}

	t.SetDisplayName(vf.Path)
}

// Status returns the §4.3 status snapshot, re-checking readiness on every call.
func (m *Manager) Status(infoHash string) (StatusSnapshot, error) {
	if !model.IsInfoHash(infoHash) {
		return StatusSnapshot{State: StateInvalid}, gwerrors.New(gwerrors.KindInvalidInput, "invalid info hash")
	}

	m.mu.RLock()
	s, ok := m.sessions[cacheKey(infoHash)]
	m.mu.RUnlock()
	if !ok {
		return StatusSnapshot{State: StateNotFound}, gwerrors.ErrSessionNotFound
	}
	s.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.handle.Stats()
	downloadRate, uploadRate := s.sampleRates(stats.BytesReadUsefulData.Int64(), stats.BytesWrittenData.Int64())
	snap := StatusSnapshot{
		State:        s.state,
		Peers:        stats.ActivePeers,
		DownloadRate: downloadRate,
		UploadRate:   uploadRate,
	}

	if s.state == StateFailed || s.state == StateEvicted {
		return snap, nil
	}

	if s.videoFile == nil {
		snap.State = StateMetadata
		return snap, nil
	}

	snap.VideoFile = s.videoFile.Path
	snap.VideoSize = s.videoFile.Size
	snap.ReadyThreshold = readyThreshold(s.videoFile.Size)

	downloaded := contiguousPrefix(s.handle, s.videoFile)
	snap.Downloaded = downloaded

	if downloaded >= snap.ReadyThreshold {
		s.state = StateReady
	} else if s.state == StateReady {
		// Non-contiguous shrink: drop back to buffering (spec §4.3, §9 Open Question).
		s.state = StateBuffering
	} else if s.state == StateMetadata {
		s.state = StateBuffering
	}
	snap.State = s.state

	if s.videoFile.Size > 0 {
		snap.Progress = float64(downloaded) / float64(s.videoFile.Size)
	}

	return snap, nil
}

// readyThreshold implements spec §4.3: >= 3MB absolute floor, or >= 2% of
// final size for files smaller than 150MB.
func readyThreshold(size int64) int64 {
	if size < smallFileLimit {
		pct := int64(float64(size) * readinessPct)
		if pct < readinessFloor {
			return readinessFloor
		}
		return pct
	}
	return readinessFloor
}

// contiguousPrefix walks t's per-piece completion state (torrent.PieceState,
// the same bitmap the pack's anacrolix engine mirrors into its own
// high-water-mark bitfield) from the video file's first byte forward,
// stopping at the first incomplete piece. Unlike a plain os.Stat of the file
// size, this can't be fooled by a tail-priority write that extends the file
// on disk while the head is still missing (invariant #5).
func contiguousPrefix(t *torrent.Torrent, vf *VideoFile) int64 {
	info := t.Info()
	if info == nil || vf == nil {
		return 0
	}
	pieceLen := info.PieceLength
	if pieceLen <= 0 {
		return 0
	}

	var offset int64
	found := false
	for _, f := range t.Files() {
		if f.Length() == vf.Size {
			offset = f.Offset()
			found = true
			break
		}
	}
	if !found {
		return 0
	}

	piece := int(offset / pieceLen)
	pieceStart := int64(piece) * pieceLen

	var contiguous int64
	for contiguous < vf.Size {
		if !t.PieceState(piece).Complete {
			break
		}
		pieceEnd := pieceStart + pieceLen
		available := pieceEnd - (offset + contiguous)
		if remaining := vf.Size - contiguous; available > remaining {
			available = remaining
		}
		contiguous += available
		piece++
		pieceStart = pieceEnd
	}
	return contiguous
}

func (m *Manager) evictionLoop(ctx context.Context) {
	ticker := time.NewTicker(evictionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.sessions {
		s.mu.Lock()
		age := now.Sub(s.CreatedAt)
		s.mu.Unlock()
		if age > maxSessionAge {
			log.Infof("swarm: evicting session %s (age %s)", s.InfoHash, age)
			s.handle.Drop()
			s.mu.Lock()
			s.state = StateEvicted
			s.mu.Unlock()
			delete(m.sessions, key)
		}
	}
}
