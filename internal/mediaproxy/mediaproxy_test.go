package mediaproxy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRemuxable(t *testing.T) {
	assert.True(t, isRemuxable("/data/movie.mp4"))
	assert.True(t, isRemuxable("/data/movie.MP4"))
	assert.False(t, isRemuxable("/data/movie.mkv"))
}

func TestBuildArgsRemuxCopiesVideo(t *testing.T) {
	args := buildArgs("/data/movie.mp4", 0, true)
	assert.Contains(t, args, "copy")
	assert.NotContains(t, args, "libx264")
}

func TestBuildArgsTranscodeUsesX264(t *testing.T) {
	args := buildArgs("/data/movie.mkv", 0, false)
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "ultrafast")
	assert.Contains(t, args, "28")
}

func TestBuildArgsSeekAddsSS(t *testing.T) {
	args := buildArgs("/data/movie.mp4", 12.5, true)
	found := false
	for i, a := range args {
		if a == "-ss" && i+1 < len(args) && args[i+1] == "12.500" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestIsHopByHop(t *testing.T) {
	assert.True(t, IsHopByHop("Connection"))
	assert.False(t, IsHopByHop("Content-Type"))
}

func TestLastLinesKeepsOnlyTail(t *testing.T) {
	l := newLastLines(2)
	l.drain(strings.NewReader("a\nb\nc\n"))
	assert.Equal(t, "b | c", l.String())
}
