package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// CaptureSampleRate is the fixed capture rate for voice exchanges.
	CaptureSampleRate = 16000
	// CaptureChannels is mono; the assistant endpoint expects single-channel voice.
	CaptureChannels = 1

	wavHeaderSize = 44
)

// Artifact is the finished binary output of one capture session: a complete
// WAV container ready for upload or playback.
type Artifact struct {
	WAV        []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Empty reports whether the artifact carries any audio payload.
func (a Artifact) Empty() bool {
	return len(a.WAV) <= wavHeaderSize
}

// NewArtifact wraps raw little-endian s16 PCM into a WAV artifact.
func NewArtifact(pcm []byte, sampleRate int, channels int) Artifact {
	if channels <= 0 {
		channels = 1
	}
	if sampleRate <= 0 {
		sampleRate = CaptureSampleRate
	}

	frames := len(pcm) / (channels * 2)
	duration := time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))

	return Artifact{
		WAV:        EncodePCM16WAV(pcm, sampleRate, channels),
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   duration,
	}
}

// EncodePCM16WAV prefixes raw little-endian PCM bytes with a minimal WAV header.
func EncodePCM16WAV(pcm []byte, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	out := make([]byte, wavHeaderSize+len(pcm))
	header := out[:wavHeaderSize]
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	copy(out[wavHeaderSize:], pcm)
	return out
}

// DecodePCM16WAV extracts s16 samples, rate, and channel count from a WAV
// container. Only uncompressed 16-bit PCM is supported; that is the only
// format the capture path and the assistant audio refs produce.
func DecodePCM16WAV(data []byte) (samples []int16, sampleRate int, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE container")
	}

	var (
		fmtSeen   bool
		audioFmt  uint16
		bitDepth  uint16
		dataChunk []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+8:]
		if chunkSize > len(body) {
			chunkSize = len(body)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			fmtSeen = true
			audioFmt = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = binary.LittleEndian.Uint16(body[14:16])
		case "data":
			dataChunk = body[:chunkSize]
		}

		// Chunks are word-aligned.
		offset += 8 + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !fmtSeen {
		return nil, 0, 0, fmt.Errorf("missing fmt chunk")
	}
	if audioFmt != 1 || bitDepth != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported WAV encoding: format=%d bits=%d", audioFmt, bitDepth)
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid WAV format: channels=%d rate=%d", channels, sampleRate)
	}
	if dataChunk == nil {
		return nil, 0, 0, fmt.Errorf("missing data chunk")
	}

	samples = make([]int16, len(dataChunk)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(dataChunk[i*2 : i*2+2]))
	}
	return samples, sampleRate, channels, nil
}
