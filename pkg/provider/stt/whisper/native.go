// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/verdantlabs/leafdoc/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using the whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all calls; each Transcribe creates its own
// whisper context, so concurrent calls do not interfere.
type NativeProvider struct {
	model    whisperlib.Model
	language string
	channels int
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeChannels sets the channel count of raw PCM clips that arrive
// without a WAV header. Multi-channel audio is downmixed to mono before
// inference. Defaults to 1.
func WithNativeChannels(n int) NativeOption {
	return func(p *NativeProvider) { p.channels = n }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
		channels: 1,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements stt.Provider. The clip may be a WAV file or raw
// 16-bit little-endian PCM; any WAV header is stripped before the samples
// are converted to float32 mono for inference.
func (p *NativeProvider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("whisper: audio must not be empty")
	}

	pcm := audio
	channels := p.channels
	if isWAV(audio) {
		var err error
		pcm, channels, err = stripWAV(audio)
		if err != nil {
			return "", err
		}
	}

	samples := pcmToFloat32Mono(pcm, channels)
	if len(samples) == 0 {
		return "", nil
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// stripWAV returns the data chunk of a PCM WAV file along with its channel
// count. Only 16-bit PCM is supported.
func stripWAV(b []byte) (pcm []byte, channels int, err error) {
	if len(b) < 44 {
		return nil, 0, errors.New("whisper: truncated WAV header")
	}
	format := binary.LittleEndian.Uint16(b[20:22])
	if format != 1 {
		return nil, 0, fmt.Errorf("whisper: unsupported WAV format %d (want PCM)", format)
	}
	if bits := binary.LittleEndian.Uint16(b[34:36]); bits != bitsPerSample {
		return nil, 0, fmt.Errorf("whisper: unsupported WAV bit depth %d (want %d)", bits, bitsPerSample)
	}
	channels = int(binary.LittleEndian.Uint16(b[22:24]))
	if channels <= 0 {
		channels = 1
	}

	// Scan chunks for "data"; the fmt chunk is not always exactly 16 bytes.
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if id == "data" {
			end := off + size
			if end > len(b) {
				end = len(b)
			}
			return b[off:end], channels, nil
		}
		off += size
	}
	return nil, 0, errors.New("whisper: WAV data chunk not found")
}

// pcmToFloat32Mono converts interleaved 16-bit LE PCM to normalised float32
// mono samples, averaging channels when the input is multi-channel.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	out := make([]float32, 0, frames)
	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < channels; c++ {
			i := f*frameBytes + c*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		}
		out = append(out, float32(sum/channels)/32768.0)
	}
	return out
}
