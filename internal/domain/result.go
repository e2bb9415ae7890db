package domain

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type FrameResult struct {
	Status      Status    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	Kind        FrameKind `json:"kind,omitempty"`
	PayloadSize int       `json:"payload_size"`
	PTS         int64     `json:"pts"`
}

type SubtitleResult struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Cues   []Cue  `json:"cues"`
}

func FrameError(err error) FrameResult {
	return FrameResult{Status: StatusError, Detail: err.Error()}
}

func SubtitleError(err error) SubtitleResult {
	return SubtitleResult{Status: StatusError, Detail: err.Error(), Cues: []Cue{}}
}
