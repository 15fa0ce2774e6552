// Package audio provides audio processing services using FFmpeg.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-soundscape/internal/config"
)

// Service handles audio processing operations using FFmpeg.
type Service struct {
	ffmpegPath  string
	ffprobePath string
	format      Format
}

// NewService creates a new audio processing service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		ffmpegPath:  cfg.Audio.FFmpegPath,
		ffprobePath: cfg.Audio.FFprobePath,
		format:      PlaybackFormat(cfg.Audio.SampleRate),
	}
}

// Format returns the PCM format produced by DecodePCM.
func (s *Service) Format() Format {
	return s.format
}

// DecodePCM decodes any FFmpeg-readable source into interleaved PCM in the
// playback format. The result is trimmed to whole frames.
func (s *Service) DecodePCM(ctx context.Context, path string) ([]byte, error) {
	// #nosec G204 - FFmpegPath is from config, path comes from the catalog
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", string(s.format.Codec),
		"-ar", strconv.Itoa(int(s.format.SampleRate)),
		"-ac", strconv.Itoa(int(s.format.Channels)),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewDecodeError(path, stderr.String(), err)
	}

	pcm := stdout.Bytes()
	frame := s.format.BytesPerFrame()
	pcm = pcm[:len(pcm)-len(pcm)%frame]
	if len(pcm) == 0 {
		return nil, NewDecodeError(path, stderr.String(), fmt.Errorf("no audio frames"))
	}
	return pcm, nil
}

// ConvertToWAV normalises an upload to the loop storage format and returns
// its duration in seconds.
func (s *Service) ConvertToWAV(ctx context.Context, inputPath, outputPath string) (float64, error) {
	// #nosec G204 - FFmpegPath is from config, inputPath and outputPath are internally validated
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-v", "error",
		"-i", inputPath,
		"-ar", strconv.Itoa(int(s.format.SampleRate)),
		"-ac", strconv.Itoa(int(s.format.Channels)),
		"-acodec", string(s.format.Codec),
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, NewConversionError(inputPath, stderr.String(), err)
	}

	return s.GetDuration(ctx, outputPath)
}

// GetDuration retrieves the duration of an audio file in seconds using ffprobe.
func (s *Service) GetDuration(ctx context.Context, filePath string) (float64, error) {
	// #nosec G204 - ffprobe binary is from config, filePath is internally validated
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-i", filePath,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0",
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, NewDurationError(filePath, "", err)
	}

	duration, err := parseDuration(string(output))
	if err != nil {
		return 0, NewDurationError(filePath, string(output), err)
	}
	return duration, nil
}

func parseDuration(output string) (float64, error) {
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(output), "%f", &duration); err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", strings.TrimSpace(output), err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %f", duration)
	}
	return duration, nil
}
