package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate"`
}

// Probe runs ffprobe against a media URL and returns its stream inventory.
func Probe(ctx context.Context, url string) ([]domain.StreamInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_streams",
		"-of", "json",
		url,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("run ffprobe: %w", err)
	}

	return ParseInventory(output)
}

// ParseInventory decodes ffprobe-shaped JSON ({"streams": [...]}) into stream infos.
// Codec types other than video, audio, subtitle and data map to unknown.
// Malformed input fails with domain.ErrInitialization.
func ParseInventory(data []byte) ([]domain.StreamInfo, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("%w: decode inventory: %w", domain.ErrInitialization, err)
	}

	inventory := make([]domain.StreamInfo, 0, len(ff.Streams))
	for _, s := range ff.Streams {
		info := domain.StreamInfo{
			Index: s.Index,
			Kind:  kindOf(s.CodecType),
			Codec: s.CodecName,
		}

		switch info.Kind {
		case domain.StreamVideo:
			rate, err := parseFrameRate(s.RFrameRate)
			if err != nil {
				return nil, fmt.Errorf("%w: stream %d r_frame_rate: %w", domain.ErrInitialization, s.Index, err)
			}
			info.Video = &domain.VideoInfo{
				Width:     s.Width,
				Height:    s.Height,
				FrameRate: rate,
			}
		case domain.StreamAudio:
			sampleRate, err := parseInt(s.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("%w: stream %d sample_rate: %w", domain.ErrInitialization, s.Index, err)
			}
			info.Audio = &domain.AudioInfo{
				Channels:   s.Channels,
				SampleRate: sampleRate,
			}
		}

		inventory = append(inventory, info)
	}

	return inventory, nil
}

func ReadInventory(r io.Reader) ([]domain.StreamInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return ParseInventory(data)
}

func kindOf(codecType string) domain.StreamKind {
	switch kind := domain.StreamKind(strings.ToLower(codecType)); kind {
	case domain.StreamVideo, domain.StreamAudio, domain.StreamSubtitle, domain.StreamData:
		return kind
	default:
		return domain.StreamUnknown
	}
}

// parseInt reads ffprobe's string-encoded integers. Absent means zero.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseFrameRate reads "num/den". Absent or "0/0" means unknown and yields zero.
func parseFrameRate(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	numStr, denStr, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	den, err := strconv.ParseFloat(denStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}
