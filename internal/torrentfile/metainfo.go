// Package torrentfile parses bencoded .torrent files and builds/parses
// magnet URIs. The bencode parsing is adapted from the teacher's
// internal/prowlarr/metainfo.go (itself ported from cenkalti/rain's
// internal/metainfo) — see DESIGN.md.
package torrentfile

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/zeebo/bencode"
)

// Creator is embedded as "created by" in torrents built with NewBytes.
var Creator = "streamforge-gateway"

// File is one file inside a torrent.
type File struct {
	Length  int64
	Path    string
	Padding bool
}

// Info is the decoded "info" dictionary of a torrent.
type Info struct {
	PieceLength uint32
	Name        string
	Hash        [20]byte
	Length      int64
	NumPieces   uint32
	Bytes       []byte
	Private     bool
	Files       []File
}

// InfoHash returns the lowercase hex info-hash string.
func (i Info) InfoHash() string {
	return hex.EncodeToString(i.Hash[:])
}

// MetaInfo is a fully decoded .torrent file.
type MetaInfo struct {
	Info         Info
	AnnounceList [][]string
	URLList      []string
}

type infoType struct {
	PieceLength uint32             `bencode:"piece length"`
	Pieces      []byte             `bencode:"pieces"`
	Name        string             `bencode:"name"`
	NameUTF8    string             `bencode:"name.utf-8,omitempty"`
	Private     bencode.RawMessage `bencode:"private"`
	Length      int64              `bencode:"length"`
	Files       []file             `bencode:"files"`
}

func (ib *infoType) overrideUTF8Keys() {
	if len(ib.NameUTF8) > 0 {
		ib.Name = ib.NameUTF8
	}
	for i := range ib.Files {
		if len(ib.Files[i].PathUTF8) > 0 {
			ib.Files[i].Path = ib.Files[i].PathUTF8
		}
	}
}

type file struct {
	Length   int64    `bencode:"length"`
	Path     []string `bencode:"path"`
	PathUTF8 []string `bencode:"path.utf-8,omitempty"`
	Attr     string   `bencode:"attr"`
}

func (f *file) isPadding() bool {
	if strings.ContainsRune(f.Attr, 'p') {
		return true
	}
	if len(f.Path) > 0 && strings.HasPrefix(f.Path[len(f.Path)-1], "_____padding_file") {
		return true
	}
	return false
}

var (
	errInvalidPieceData = errors.New("torrentfile: invalid piece data")
	errZeroPieceLength   = errors.New("torrentfile: zero piece length")
	errZeroPieces        = errors.New("torrentfile: zero pieces")
)

// ParseTorrentFile decodes a .torrent file body into a MetaInfo.
func ParseTorrentFile(r io.Reader) (*MetaInfo, error) {
	var ret MetaInfo
	var t struct {
		Info         bencode.RawMessage `bencode:"info"`
		Announce     bencode.RawMessage `bencode:"announce"`
		AnnounceList bencode.RawMessage `bencode:"announce-list"`
		URLList      bencode.RawMessage `bencode:"url-list"`
	}
	if err := bencode.NewDecoder(r).Decode(&t); err != nil {
		return nil, err
	}
	if len(t.Info) == 0 {
		return nil, errors.New("torrentfile: no info dict in torrent file")
	}

	info, err := NewInfo(t.Info, true, true)
	if err != nil {
		return nil, err
	}
	ret.Info = *info

	if len(t.AnnounceList) > 0 {
		var ll [][]string
		if err := bencode.DecodeBytes(t.AnnounceList, &ll); err == nil {
			for _, tier := range ll {
				var ti []string
				for _, tr := range tier {
					if isTrackerSupported(tr) {
						ti = append(ti, tr)
					}
				}
				if len(ti) > 0 {
					ret.AnnounceList = append(ret.AnnounceList, ti)
				}
			}
		}
	} else {
		var s string
		if err := bencode.DecodeBytes(t.Announce, &s); err == nil && isTrackerSupported(s) {
			ret.AnnounceList = append(ret.AnnounceList, []string{s})
		}
	}

	if len(t.URLList) > 0 {
		if t.URLList[0] == 'l' {
			var l []string
			if err := bencode.DecodeBytes(t.URLList, &l); err == nil {
				for _, s := range l {
					if isWebseedSupported(s) {
						ret.URLList = append(ret.URLList, s)
					}
				}
			}
		} else {
			var s string
			if err := bencode.DecodeBytes(t.URLList, &s); err == nil && isWebseedSupported(s) {
				ret.URLList = append(ret.URLList, s)
			}
		}
	}
	return &ret, nil
}

// NewInfo decodes the "info" dict bytes in b into an Info, computing the
// info-hash as the SHA1 of the raw bytes.
func NewInfo(b []byte, utf8, pad bool) (*Info, error) {
	var ib infoType
	if err := bencode.DecodeBytes(b, &ib); err != nil {
		return nil, err
	}
	if ib.PieceLength == 0 {
		return nil, errZeroPieceLength
	}
	if len(ib.Pieces)%sha1.Size != 0 {
		return nil, errInvalidPieceData
	}
	numPieces := len(ib.Pieces) / sha1.Size
	if numPieces == 0 {
		return nil, errZeroPieces
	}
	if utf8 {
		ib.overrideUTF8Keys()
	}
	for _, f := range ib.Files {
		for _, p := range f.Path {
			if strings.TrimSpace(p) == ".." {
				return nil, fmt.Errorf("torrentfile: invalid file name %q", filepath.Join(f.Path...))
			}
		}
	}

	i := Info{
		PieceLength: ib.PieceLength,
		NumPieces:   uint32(numPieces),
		Name:        ib.Name,
		Private:     parsePrivateField(ib.Private),
	}

	multiFile := len(ib.Files) > 0
	if multiFile {
		for _, f := range ib.Files {
			i.Length += f.Length
		}
	} else {
		i.Length = ib.Length
	}

	totalPieceDataLength := int64(i.PieceLength) * int64(i.NumPieces)
	delta := totalPieceDataLength - i.Length
	if delta >= int64(i.PieceLength) || delta < 0 {
		return nil, errInvalidPieceData
	}
	i.Bytes = b

	hash := sha1.New()
	_, _ = hash.Write(b)
	copy(i.Hash[:], hash.Sum(nil))

	if ib.Name != "" {
		i.Name = ib.Name
	} else {
		i.Name = hex.EncodeToString(i.Hash[:])
	}

	if multiFile {
		i.Files = make([]File, len(ib.Files))
		uniquePaths := make(map[string]struct{}, len(ib.Files))
		for j, f := range ib.Files {
			parts := make([]string, 0, len(f.Path)+1)
			parts = append(parts, cleanName(i.Name))
			for _, p := range f.Path {
				parts = append(parts, cleanName(p))
			}
			joined := filepath.Join(parts...)
			if _, ok := uniquePaths[joined]; ok {
				return nil, fmt.Errorf("torrentfile: duplicate file name %q", joined)
			}
			uniquePaths[joined] = struct{}{}
			i.Files[j] = File{Path: joined, Length: f.Length}
			if pad {
				i.Files[j].Padding = f.isPadding()
			}
		}
	} else {
		i.Files = []File{{Path: cleanName(i.Name), Length: i.Length}}
	}
	return &i, nil
}

func isTrackerSupported(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "udp://")
}

func isWebseedSupported(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NewBytes builds a .torrent file from an already-bencoded info dict.
func NewBytes(info []byte, trackers [][]string, webseeds []string, comment string) ([]byte, error) {
	mi := struct {
		Info         bencode.RawMessage `bencode:"info"`
		Announce     string             `bencode:"announce,omitempty"`
		AnnounceList [][]string         `bencode:"announce-list,omitempty"`
		URLList      bencode.RawMessage `bencode:"url-list,omitempty"`
		Comment      string             `bencode:"comment,omitempty"`
		CreationDate int64              `bencode:"creation date"`
		CreatedBy    string             `bencode:"created by,omitempty"`
	}{
		Info:         info,
		Comment:      comment,
		CreationDate: time.Now().UTC().Unix(),
		CreatedBy:    Creator,
	}
	if len(trackers) == 1 && len(trackers[0]) == 1 {
		mi.Announce = trackers[0][0]
	} else if len(trackers) > 0 {
		mi.AnnounceList = trackers
	}
	if len(webseeds) == 1 {
		mi.URLList, _ = bencode.EncodeBytes(webseeds[0])
	} else if len(webseeds) > 1 {
		mi.URLList, _ = bencode.EncodeBytes(webseeds)
	}
	return bencode.EncodeBytes(mi)
}

func parsePrivateField(s bencode.RawMessage) bool {
	if len(s) == 0 {
		return false
	}
	var intVal int64
	if err := bencode.DecodeBytes(s, &intVal); err == nil {
		return intVal != 0
	}
	var stringVal string
	if err := bencode.DecodeBytes(s, &stringVal); err != nil {
		return true
	}
	return !(stringVal == "" || stringVal == "0")
}

func cleanName(s string) string {
	return cleanNameN(s, 255)
}

func cleanNameN(s string, max int) string {
	s = strings.ToValidUTF8(s, string(unicode.ReplacementChar))
	s = trimName(s, max)
	s = strings.ToValidUTF8(s, "")
	return replaceSeparator(s)
}

func trimName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	ext := path.Ext(s)
	if len(ext) > max {
		return s[:max]
	}
	return s[:max-len(ext)] + ext
}

func replaceSeparator(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' {
			return '_'
		}
		return r
	}, s)
}
