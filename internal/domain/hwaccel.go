package domain

type Accelerator string

const (
	AccelNone         Accelerator = "none"
	AccelCUDA         Accelerator = "cuda"
	AccelVideoToolbox Accelerator = "videotoolbox"
	AccelVAAPI        Accelerator = "vaapi"
	AccelQSV          Accelerator = "qsv"
)

// HWAccelConfig names the filter variants the host pipeline should use for a
// given accelerator. PixelFormat is passed to hardware scalers that take one.
type HWAccelConfig struct {
	Accelerator Accelerator
	ScaleFilter string
	PixelFormat string
}
