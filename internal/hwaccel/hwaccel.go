package hwaccel

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Auto asks the worker to pick the best accelerator the local ffmpeg supports.
const Auto = "auto"

var scaleFilters = map[domain.Accelerator]string{
	domain.AccelCUDA:         "scale_cuda",
	domain.AccelVideoToolbox: "scale_vt",
	domain.AccelVAAPI:        "scale_vaapi",
	domain.AccelQSV:          "scale_qsv",
}

func Detect(ctx context.Context) ([]domain.Accelerator, error) {
	hwaccels, err := detectHWAccels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hwaccels: %w", err)
	}

	filters, err := detectFilters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}

	var available []domain.Accelerator
	for _, accel := range []domain.Accelerator{domain.AccelCUDA, domain.AccelVideoToolbox, domain.AccelVAAPI, domain.AccelQSV} {
		if hwaccels[string(accel)] && filters[scaleFilters[accel]] {
			available = append(available, accel)
		}
	}

	available = append(available, domain.AccelNone)

	return available, nil
}

func Select(available []domain.Accelerator) domain.Accelerator {
	priority := []domain.Accelerator{domain.AccelCUDA, domain.AccelQSV, domain.AccelVideoToolbox, domain.AccelVAAPI}

	for _, accel := range priority {
		for _, a := range available {
			if a == accel {
				return accel
			}
		}
	}

	return domain.AccelNone
}

func DetectBest(ctx context.Context) *domain.HWAccelConfig {
	available, err := Detect(ctx)
	if err != nil {
		return NewConfig(domain.AccelNone)
	}
	return NewConfig(Select(available))
}

// Parse maps a configuration value onto an accelerator. Empty means none;
// "auto" is not an accelerator and must be resolved with DetectBest.
func Parse(value string) (domain.Accelerator, error) {
	switch accel := domain.Accelerator(strings.ToLower(strings.TrimSpace(value))); accel {
	case "", domain.AccelNone:
		return domain.AccelNone, nil
	case domain.AccelCUDA, domain.AccelVideoToolbox, domain.AccelVAAPI, domain.AccelQSV:
		return accel, nil
	default:
		return "", fmt.Errorf("unknown accelerator %q", value)
	}
}

func NewConfig(accel domain.Accelerator) *domain.HWAccelConfig {
	switch accel {
	case domain.AccelCUDA, domain.AccelVAAPI, domain.AccelQSV:
		return &domain.HWAccelConfig{
			Accelerator: accel,
			ScaleFilter: scaleFilters[accel],
			PixelFormat: "nv12",
		}
	case domain.AccelVideoToolbox:
		return &domain.HWAccelConfig{
			Accelerator: accel,
			ScaleFilter: scaleFilters[accel],
		}
	default:
		return &domain.HWAccelConfig{
			Accelerator: domain.AccelNone,
			ScaleFilter: "scale",
		}
	}
}

func detectHWAccels(ctx context.Context) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-hwaccels")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasSuffix(line, ":") {
			result[line] = true
		}
	}

	return result, nil
}

// detectFilters reads `ffmpeg -filters`, where each entry is
// " flags name  inputs->outputs  description".
func detectFilters(ctx context.Context) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-filters")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if strings.HasPrefix(fields[1], "scale") {
			result[fields[1]] = true
		}
	}

	return result, scanner.Err()
}
