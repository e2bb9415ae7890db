package domain

import "fmt"

type StreamKind string

const (
	StreamVideo    StreamKind = "video"
	StreamAudio    StreamKind = "audio"
	StreamSubtitle StreamKind = "subtitle"
	StreamData     StreamKind = "data"
	StreamUnknown  StreamKind = "unknown"
)

// StreamInfo is one entry of the host's stream inventory. Video is only set for
// video streams and Audio only for audio streams.
type StreamInfo struct {
	Index int        `json:"index"`
	Kind  StreamKind `json:"kind"`
	Codec string     `json:"codec,omitempty"`
	Video *VideoInfo `json:"video,omitempty"`
	Audio *AudioInfo `json:"audio,omitempty"`
}

type VideoInfo struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
}

type AudioInfo struct {
	Channels   int `json:"channels"`
	SampleRate int `json:"sample_rate"`
}

func (s StreamInfo) Validate() error {
	if s.Index < 0 {
		return fmt.Errorf("stream index %d is negative", s.Index)
	}

	switch s.Kind {
	case StreamVideo:
		if s.Audio != nil {
			return fmt.Errorf("video stream %d carries audio metadata", s.Index)
		}
		if s.Video != nil && (s.Video.Width < 0 || s.Video.Height < 0) {
			return fmt.Errorf("video stream %d has negative dimensions", s.Index)
		}
	case StreamAudio:
		if s.Video != nil {
			return fmt.Errorf("audio stream %d carries video metadata", s.Index)
		}
		if s.Audio != nil && (s.Audio.Channels < 0 || s.Audio.SampleRate < 0) {
			return fmt.Errorf("audio stream %d has negative channel count or sample rate", s.Index)
		}
	case StreamSubtitle, StreamData, StreamUnknown:
		if s.Video != nil || s.Audio != nil {
			return fmt.Errorf("%s stream %d carries media metadata", s.Kind, s.Index)
		}
	default:
		return fmt.Errorf("stream %d has invalid kind %q", s.Index, s.Kind)
	}

	return nil
}

type FrameKind string

const (
	FrameVideo FrameKind = "video"
	FrameAudio FrameKind = "audio"
)

// Frame is a decoded frame handed over by the host for the duration of one call.
// Data holds one entry per plane.
type Frame struct {
	StreamIndex int
	PTS         int64
	Width       int
	Height      int
	SampleRate  int
	Channels    int
	NbSamples   int
	Data        [][]byte
}

func (f *Frame) Kind() FrameKind {
	if f.Width == 0 && f.Height == 0 {
		return FrameAudio
	}
	return FrameVideo
}

func (f *Frame) PayloadSize() int {
	size := 0
	for _, plane := range f.Data {
		size += len(plane)
	}
	return size
}
