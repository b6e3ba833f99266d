package torrentfile

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/streamforge/gateway/internal/model"
)

// Magnet is a decoded magnet URI. The retrieved teacher snapshot calls into a
// Magnet type and a ParseMagnetUri function (internal/prowlarr/prowlarr.go)
// that were never part of the retrieved pack — see DESIGN.md. Build/parse are
// reconstructed here from that call-site contract: an exact-topic (urn:btih:)
// info-hash, a display name, and a flat list of trackers.
type Magnet struct {
	Name     string
	InfoHash [20]byte
	Trackers []string
}

// InfoHashStr returns the lowercase hex info-hash.
func (m Magnet) InfoHashStr() string {
	return fmt.Sprintf("%x", m.InfoHash)
}

// String renders the magnet URI.
func (m Magnet) String() string {
	v := url.Values{}
	v.Set("xt", "urn:btih:"+m.InfoHashStr())
	if m.Name != "" {
		v.Set("dn", m.Name)
	}
	for _, tr := range m.Trackers {
		v.Add("tr", tr)
	}
	return "magnet:?" + v.Encode()
}

var errNoExactTopic = errors.New("torrentfile: magnet uri has no urn:btih exact topic")

// ParseMagnetUri parses a "magnet:?..." URI into a Magnet.
func ParseMagnetUri(raw string) (*Magnet, error) {
	if !strings.HasPrefix(raw, "magnet:") {
		return nil, fmt.Errorf("torrentfile: not a magnet uri: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	q := u.Query()

	var hashHex string
	for _, xt := range q["xt"] {
		if strings.HasPrefix(xt, "urn:btih:") {
			hashHex = strings.ToLower(strings.TrimPrefix(xt, "urn:btih:"))
			break
		}
	}
	if hashHex == "" {
		return nil, errNoExactTopic
	}
	if !model.IsInfoHash(hashHex) {
		return nil, fmt.Errorf("torrentfile: invalid info hash in magnet uri: %q", hashHex)
	}

	m := &Magnet{Name: q.Get("dn"), Trackers: q["tr"]}
	var hash [20]byte
	n := 0
	for i := 0; i < len(hashHex); i += 2 {
		var b byte
		_, err := fmt.Sscanf(hashHex[i:i+2], "%02x", &b)
		if err != nil {
			return nil, fmt.Errorf("torrentfile: invalid info hash hex: %w", err)
		}
		hash[n] = b
		n++
	}
	m.InfoHash = hash
	return m, nil
}

// BuildMagnet constructs the magnet URI for an info-hash (already 40 lowercase
// hex chars, per model.IsInfoHash), optional display name and trackers.
func BuildMagnet(infoHash, name string, trackers []string) (string, error) {
	if !model.IsInfoHash(infoHash) {
		return "", fmt.Errorf("torrentfile: invalid info hash %q", infoHash)
	}
	v := url.Values{}
	v.Set("xt", "urn:btih:"+infoHash)
	if name != "" {
		v.Set("dn", name)
	}
	for _, tr := range trackers {
		v.Add("tr", tr)
	}
	return "magnet:?" + v.Encode(), nil
}
