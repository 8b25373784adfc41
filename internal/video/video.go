package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/captioner/internal/ffmpeg"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// video file information
type Info struct {
	Path      string
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	HasAudio  bool
}

// Muxer renders subtitles into video frames.
type Muxer interface {
	BurnSubtitles(
		ctx context.Context,
		videoPath, subtitlePath, outputPath string,
		style subtitle.StyleOptions,
	) error
}

// FFmpegMuxer burns subtitles with ffmpeg's subtitles filter and composes
// videos from other media.
type FFmpegMuxer struct {
	// FontsDir is handed to libass so custom fonts named in styles resolve.
	FontsDir string
	// TempDir holds intermediate subtitle files, os.TempDir when empty.
	TempDir string
}

func NewMuxer(fontsDir, tempDir string) *FFmpegMuxer {
	return &FFmpegMuxer{
		FontsDir: fontsDir,
		TempDir:  tempDir,
	}
}

// BurnSubtitles hard codes subtitlePath into videoPath. SRT and VTT input
// is styled through force_style. ASS input keeps its own styles; an ASS
// file made only of Dialogue lines first gets a header carrying style.
func (m *FFmpegMuxer) BurnSubtitles(
	ctx context.Context,
	videoPath, subtitlePath, outputPath string,
	style subtitle.StyleOptions,
) error {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", videoPath)
	}

	file, err := subtitle.Open(subtitlePath)
	if err != nil {
		return err
	}

	forceStyle := ""
	subPath := subtitlePath
	if assFile, ok := file.(*subtitle.ASSFile); ok {
		if !assFile.HasStyles() {
			assFile.ApplyStyle(subtitle.DefaultASSTitle, style)
			tmp, err := os.CreateTemp(m.TempDir, "captioner-styled-*.ass")
			if err != nil {
				return fmt.Errorf("failed to create styled subtitle file: %w", err)
			}
			subPath = tmp.Name()
			_ = tmp.Close()
			defer os.Remove(subPath)

			if err := assFile.Write(subPath); err != nil {
				return fmt.Errorf("failed to write styled subtitle file: %w", err)
			}
		}
	} else {
		forceStyle = style.ForceStyle()
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = ffmpeg.Input(videoPath).
		Output(outputPath, ffmpeg.KwArgs{
			"vf":  SubtitlesFilter(subPath, m.FontsDir, forceStyle),
			"c:a": "copy",
			"y":   "",
		}).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg subtitle burn failed: %w", err)
	}

	return nil
}

// SubtitlesFilter builds the subtitles filter expression.
func SubtitlesFilter(subtitlePath, fontsDir, forceStyle string) string {
	var sb strings.Builder
	sb.WriteString("subtitles=filename=")
	sb.WriteString(quoteFilterValue(subtitlePath))
	if fontsDir != "" {
		sb.WriteString(":fontsdir=")
		sb.WriteString(quoteFilterValue(fontsDir))
	}
	if forceStyle != "" {
		sb.WriteString(":force_style=")
		sb.WriteString(quoteFilterValue(forceStyle))
	}
	return sb.String()
}

// quotes a filter option value; single quotes cannot be escaped inside a
// quoted run, so they close it and are emitted escaped.
func quoteFilterValue(v string) string {
	v = filepath.ToSlash(v)
	v = strings.ReplaceAll(v, ":", "\\:")
	v = strings.ReplaceAll(v, "'", `'\''`)
	return "'" + v + "'"
}

type streamReport struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetInfo reads stream details of videoPath with ffprobe.
func GetInfo(ctx context.Context, videoPath string) (*Info, error) {
	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseStreamInfo(out.Bytes())
	if err != nil {
		return nil, err
	}
	info.Path = videoPath
	return info, nil
}

func parseStreamInfo(data []byte) (*Info, error) {
	var report streamReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{}
	if d, err := strconv.ParseFloat(report.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	for _, s := range report.Streams {
		switch s.CodecType {
		case "video":
			if info.Codec != "" {
				continue
			}
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			info.FrameRate = parseRate(s.AvgFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Codec == "" {
		return nil, fmt.Errorf("no video stream found")
	}
	return info, nil
}

// parses "30000/1001" style rates
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		f, _ := strconv.ParseFloat(r, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
