package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"strconv"
)

const maxStderrBytes = 2 * 1024

// ProbeResult is the subset of ffprobe output the extractor needs.
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	res := &ProbeResult{}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			res.Width, res.Height, res.Codec = s.Width, s.Height, s.CodecName
			break
		}
	}
	if res.Width == 0 || res.Height == 0 {
		return nil, errors.New("no video stream")
	}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		res.Duration = d
	}
	return res, nil
}

// FFmpeg opens sources by shelling out to ffprobe/ffmpeg. Each seek
// decodes a single frame at the target time, which works for local paths
// and for http(s) URLs served with range support.
type FFmpeg struct {
	ffmpegBin  string
	ffprobeBin string
	logger     *slog.Logger
}

func NewFFmpeg(ffmpegBin, ffprobeBin string, logger *slog.Logger) *FFmpeg {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &FFmpeg{ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin, logger: logger}
}

// Available reports whether both binaries resolve on PATH.
func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.ffmpegBin, f.ffprobeBin} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

func (f *FFmpeg) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	stdout, err := f.run(ctx, f.ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		url,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(stdout)
}

func (f *FFmpeg) Open(ctx context.Context, url string) (Source, error) {
	probe, err := f.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("source opened", "url", url, "width", probe.Width, "height", probe.Height, "codec", probe.Codec)
	return &ffmpegSource{ff: f, url: url, probe: probe}, nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.Bytes()
		if len(tail) > maxStderrBytes {
			tail = tail[len(tail)-maxStderrBytes:]
		}
		return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(tail))
	}
	return stdout.Bytes(), nil
}

type ffmpegSource struct {
	ff    *FFmpeg
	url   string
	probe *ProbeResult
	pos   float64
	frame image.Image
}

func (s *ffmpegSource) Size() (int, int) {
	return s.probe.Width, s.probe.Height
}

func (s *ffmpegSource) Seek(ctx context.Context, t float64) error {
	s.pos = t
	s.frame = nil

	out, err := s.ff.run(ctx, s.ff.ffmpegBin,
		"-v", "error",
		"-ss", strconv.FormatFloat(t, 'f', 3, 64),
		"-i", s.url,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if len(out) == 0 {
		// Seeking to the very end of some containers yields no frame;
		// keep the position and let Frame report it.
		return nil
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	s.frame = img
	return nil
}

// Rewind resets the position without running ffmpeg; the next Seek decodes.
func (s *ffmpegSource) Rewind() error {
	s.pos = 0
	s.frame = nil
	return nil
}

func (s *ffmpegSource) Frame() (image.Image, error) {
	if s.frame == nil {
		return nil, fmt.Errorf("no frame decoded at %.3fs", s.pos)
	}
	return s.frame, nil
}

func (s *ffmpegSource) Close() error {
	s.frame = nil
	return nil
}
