package ffmpeg

import "fmt"

// Region describes a crop area. On each axis exactly two of the three values
// must be set: left/right/width horizontally, top/bottom/height vertically.
// Right and Bottom are margins measured from the far edge of the image.
type Region struct {
	Top    *int `toml:"top"`
	Left   *int `toml:"left"`
	Right  *int `toml:"right"`
	Bottom *int `toml:"bottom"`
	Width  *int `toml:"width"`
	Height *int `toml:"height"`
}

type CropCoordinates struct {
	Top    int
	Left   int
	Width  int
	Height int
}

func (r Region) Validate() error {
	if err := validateAxis("horizontal", r.Left, r.Right, r.Width); err != nil {
		return err
	}
	return validateAxis("vertical", r.Top, r.Bottom, r.Height)
}

// Absolute reports whether the region resolves without knowing the image size.
func (r Region) Absolute() bool {
	return r.Right == nil && r.Bottom == nil
}

// Coordinates resolves the region against an image. Lengths that would go
// negative are clamped to zero.
func (r Region) Coordinates(imageWidth, imageHeight int) CropCoordinates {
	left, width := resolveAxis(r.Left, r.Right, r.Width, imageWidth)
	top, height := resolveAxis(r.Top, r.Bottom, r.Height, imageHeight)
	return CropCoordinates{Top: top, Left: left, Width: width, Height: height}
}

func (c CropCoordinates) Parameters() map[string]string {
	return map[string]string{
		"out_w": fmt.Sprintf("%d", c.Width),
		"out_h": fmt.Sprintf("%d", c.Height),
		"x":     fmt.Sprintf("%d", c.Left),
		"y":     fmt.Sprintf("%d", c.Top),
	}
}

func validateAxis(axis string, start, end, size *int) error {
	set := 0
	for _, v := range []*int{start, end, size} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return fmt.Errorf("crop region: negative %s value %d", axis, *v)
		}
		set++
	}
	if set != 2 {
		return fmt.Errorf("crop region: %s axis needs exactly two of offset, margin and size, got %d", axis, set)
	}
	return nil
}

func resolveAxis(start, end, size *int, total int) (int, int) {
	switch {
	case start != nil && size != nil:
		return *start, *size
	case start != nil && end != nil:
		return *start, clamp(total - *end - *start)
	case end != nil && size != nil:
		return clamp(total - *end - *size), *size
	default:
		return 0, 0
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
