package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"go.aimuz.me/keysound/cache"
)

// frameSize is the encoded size of one stereo frame in a cache entry.
const frameSize = 8

// load decodes the sound at path, consulting the decode cache first.
func (c *Catalog) load(key, path string) (*Sound, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Key: key, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Key: key, Path: path, Err: errors.New("is a directory")}
	}

	cacheKey := c.cacheKey(path, info)
	if cacheKey != "" {
		if entry, ok := c.cache.Get(cacheKey); ok {
			format, buf, err := fromEntry(entry)
			if err == nil {
				return &Sound{Key: key, Path: path, Format: format, Buffer: buf}, nil
			}
			slog.Debug("discard cached sound", "path", path, "error", err)
		}
	}

	format, buf, err := decodeFile(path)
	if err != nil {
		return nil, &LoadError{Key: key, Path: path, Err: err}
	}

	if cacheKey != "" {
		if err := c.cache.Set(cacheKey, toEntry(format, buf), cache.DefaultTTL); err != nil {
			slog.Warn("cache sound", "path", path, "error", err)
		}
	}
	return &Sound{Key: key, Path: path, Format: format, Buffer: buf}, nil
}

func (c *Catalog) cacheKey(path string, info os.FileInfo) string {
	if c.cache == nil {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return cache.GenerateKey(abs, strconv.FormatInt(info.Size(), 10), strconv.FormatInt(info.ModTime().UnixNano(), 10))
}

// decodeFile decodes the whole file into memory, picking the decoder by extension.
func decodeFile(path string) (beep.Format, *beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return beep.Format{}, nil, err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		return beep.Format{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return beep.Format{}, nil, fmt.Errorf("decode: %w", err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return beep.Format{}, nil, fmt.Errorf("decode: %w", err)
	}
	if buf.Len() == 0 {
		return beep.Format{}, nil, errors.New("decode: no audio frames")
	}
	return format, buf, nil
}

func toEntry(format beep.Format, buf *beep.Buffer) *cache.Entry {
	out := make([]byte, 0, buf.Len()*frameSize)
	st := buf.Streamer(0, buf.Len())
	frames := make([][2]float64, 512)
	for {
		n, ok := st.Stream(frames)
		for _, fr := range frames[:n] {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(fr[0])))
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(fr[1])))
		}
		if !ok || n == 0 {
			break
		}
	}
	return &cache.Entry{
		SampleRate:  int(format.SampleRate),
		NumChannels: format.NumChannels,
		Precision:   format.Precision,
		Frames:      out,
		CreatedAt:   time.Now(),
	}
}

func fromEntry(e *cache.Entry) (beep.Format, *beep.Buffer, error) {
	switch {
	case e.SampleRate <= 0:
		return beep.Format{}, nil, errors.New("invalid sample rate")
	case e.NumChannels < 1 || e.NumChannels > 2:
		return beep.Format{}, nil, errors.New("invalid channel count")
	case e.Precision < 1 || e.Precision > 3:
		return beep.Format{}, nil, errors.New("invalid precision")
	case len(e.Frames) == 0 || len(e.Frames)%frameSize != 0:
		return beep.Format{}, nil, errors.New("invalid frame data")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(e.SampleRate),
		NumChannels: e.NumChannels,
		Precision:   e.Precision,
	}
	buf := beep.NewBuffer(format)
	buf.Append(&pcmStreamer{data: e.Frames})
	return format, buf, nil
}

// pcmStreamer streams frames encoded by toEntry.
type pcmStreamer struct {
	data []byte
	pos  int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}
	n := 0
	for n < len(samples) && p.pos+frameSize <= len(p.data) {
		l := math.Float32frombits(binary.LittleEndian.Uint32(p.data[p.pos:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(p.data[p.pos+4:]))
		samples[n] = [2]float64{float64(l), float64(r)}
		p.pos += frameSize
		n++
	}
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }
