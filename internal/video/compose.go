package video

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/captioner/internal/audio"
	ffmpegbin "github.com/mgpai22/captioner/internal/ffmpeg"
)

// Composer builds new videos from other media.
type Composer interface {
	MixAudio(ctx context.Context, videoPath, audioPath, outputPath string, opts MixOptions) error
	Concatenate(ctx context.Context, inputs []string, outputPath string) error
	ImageToVideo(ctx context.Context, imagePath, outputPath string, opts ZoomOptions) error
}

const (
	LengthVideo = "video"
	LengthAudio = "audio"
)

// MixOptions controls MixAudio. Volumes are percentages from 0 to 100.
type MixOptions struct {
	VideoVolume float64
	AudioVolume float64
	// Length picks which input sets the output duration, LengthVideo or
	// LengthAudio.
	Length string
}

func DefaultMixOptions() MixOptions {
	return MixOptions{
		VideoVolume: 100,
		AudioVolume: 100,
		Length:      LengthVideo,
	}
}

// ZoomOptions controls ImageToVideo.
type ZoomOptions struct {
	// Length of the clip in seconds.
	Length    float64
	FrameRate int
	// ZoomSpeed is the zoom added per second, in percent of the image size.
	ZoomSpeed float64
}

func DefaultZoomOptions() ZoomOptions {
	return ZoomOptions{
		Length:    5,
		FrameRate: 30,
		ZoomSpeed: 3,
	}
}

// MixAudio lays audioPath over videoPath. The original soundtrack, if any,
// is mixed in at opts.VideoVolume. With LengthAudio a shorter video holds
// its last frame until the audio ends.
func (m *FFmpegMuxer) MixAudio(
	ctx context.Context,
	videoPath, audioPath, outputPath string,
	opts MixOptions,
) error {
	info, err := GetInfo(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("failed to inspect video: %w", err)
	}
	audioDuration, err := audio.GetDuration(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("failed to inspect audio: %w", err)
	}

	return run(ctx, outputPath, mixStream(ctx, videoPath, audioPath, outputPath, opts, info, audioDuration), "audio mixing")
}

func mixStream(
	ctx context.Context,
	videoPath, audioPath, outputPath string,
	opts MixOptions,
	info *Info,
	audioDuration float64,
) *ffmpeg.Stream {
	in := ffmpeg.Input(videoPath)
	mixed := ffmpeg.Input(audioPath).Audio().
		Filter("volume", ffmpeg.Args{volume(opts.AudioVolume)})
	if info.HasAudio {
		original := in.Audio().Filter("volume", ffmpeg.Args{volume(opts.VideoVolume)})
		mixed = ffmpeg.Filter([]*ffmpeg.Stream{original, mixed}, "amix", nil, ffmpeg.KwArgs{
			"inputs":             "2",
			"duration":           "longest",
			"dropout_transition": "0",
		})
	}

	picture := in.Video()
	kwargs := ffmpeg.KwArgs{
		"c:v": "copy",
		"c:a": "aac",
		"t":   formatSeconds(info.Duration),
	}
	if opts.Length == LengthAudio {
		picture = picture.Filter("tpad", nil, ffmpeg.KwArgs{
			"stop_mode": "clone",
			"stop":      "-1",
		})
		kwargs["c:v"] = "libx264"
		kwargs["pix_fmt"] = "yuv420p"
		kwargs["t"] = formatSeconds(audioDuration)
	}

	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{picture, mixed}, outputPath, kwargs).
		OverWriteOutput()
}

// Concatenate joins inputs in order. Inputs sharing codec, size and audio
// layout are joined without re-encoding.
func (m *FFmpegMuxer) Concatenate(ctx context.Context, inputs []string, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no videos to concatenate")
	}

	infos := make([]*Info, len(inputs))
	for i, p := range inputs {
		info, err := GetInfo(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to inspect video %d: %w", i+1, err)
		}
		infos[i] = info
	}

	list, err := os.CreateTemp(m.TempDir, "captioner-concat-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	listPath := list.Name()
	defer os.Remove(listPath)

	content, err := concatList(inputs)
	if err != nil {
		_ = list.Close()
		return err
	}
	_, werr := list.WriteString(content)
	if cerr := list.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("failed to write concat list: %w", werr)
	}

	return run(ctx, outputPath, concatStream(ctx, listPath, outputPath, uniform(infos)), "concatenation")
}

// concatList renders the concat demuxer input list with absolute paths.
func concatList(paths []string) (string, error) {
	var sb strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(filepath.ToSlash(abs), "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String(), nil
}

func concatStream(ctx context.Context, listPath, outputPath string, copyStreams bool) *ffmpeg.Stream {
	kwargs := ffmpeg.KwArgs{"c": "copy"}
	if !copyStreams {
		kwargs = ffmpeg.KwArgs{
			"c:v":     "libx264",
			"c:a":     "aac",
			"pix_fmt": "yuv420p",
		}
	}
	in := ffmpeg.Input(listPath, ffmpeg.KwArgs{"format": "concat", "safe": "0"})
	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{in}, outputPath, kwargs).
		OverWriteOutput()
}

func uniform(infos []*Info) bool {
	for _, info := range infos[1:] {
		first := infos[0]
		if info.Codec != first.Codec ||
			info.Width != first.Width ||
			info.Height != first.Height ||
			info.HasAudio != first.HasAudio {
			return false
		}
	}
	return true
}

// ImageToVideo renders a still image as a slowly zooming clip, 1920x1080
// for landscape images and 1080x1920 for portrait ones.
func (m *FFmpegMuxer) ImageToVideo(
	ctx context.Context,
	imagePath, outputPath string,
	opts ZoomOptions,
) error {
	if opts.Length <= 0 || opts.FrameRate <= 0 {
		return fmt.Errorf("length and frame rate must be positive")
	}

	// ffprobe reports a still image as a single frame video stream
	info, err := GetInfo(ctx, imagePath)
	if err != nil {
		return fmt.Errorf("failed to inspect image: %w", err)
	}

	return run(ctx, outputPath, zoomStream(ctx, imagePath, outputPath, opts, info.Width >= info.Height), "image to video")
}

func zoomStream(ctx context.Context, imagePath, outputPath string, opts ZoomOptions, landscape bool) *ffmpeg.Stream {
	frames := int(math.Round(opts.Length * float64(opts.FrameRate)))
	growth := opts.ZoomSpeed / 100 * opts.Length

	scale, size := "7680:4320", "1920x1080"
	if !landscape {
		scale, size = "4320:7680", "1080x1920"
	}

	zoomed := ffmpeg.Input(imagePath, ffmpeg.KwArgs{
		"loop":      "1",
		"framerate": strconv.Itoa(opts.FrameRate),
	}).
		Filter("scale", ffmpeg.Args{scale}).
		ZoomPan(ffmpeg.KwArgs{
			"z":   fmt.Sprintf("min(1+%s*on/%d,%s)", formatSeconds(growth), frames, formatSeconds(1+growth)),
			"d":   strconv.Itoa(frames),
			"x":   "iw/2-(iw/zoom/2)",
			"y":   "ih/2-(ih/zoom/2)",
			"s":   size,
			"fps": strconv.Itoa(opts.FrameRate),
		})

	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{zoomed}, outputPath, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"pix_fmt": "yuv420p",
		"t":       formatSeconds(opts.Length),
	}).OverWriteOutput()
}

func run(ctx context.Context, outputPath string, stream *ffmpeg.Stream, what string) error {
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

	if err := stream.SetFfmpegPath(ffmpegPath).Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w", what, err)
	}
	return nil
}

// volume turns a percentage into a volume filter gain.
func volume(percent float64) string {
	return strconv.FormatFloat(math.Max(percent, 0)/100, 'f', -1, 64)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
