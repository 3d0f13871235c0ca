// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package media derives metadata, audio, and still frames from video files
// by shelling out to ffprobe and ffmpeg.
//
// Logic Flow:
//   - GetVideoInfo runs `ffprobe -print_format json` and maps the container
//     and first video and audio streams into a model.VideoInfo.
//   - ExtractAudio decodes the audio track into a mono PCM WAV file next to
//     the clip, at the sample rate Whisper expects.
//   - ExtractFrames seeks to evenly spaced offsets (i * duration / n) and
//     grabs one JPEG per offset from ffmpeg's standard output. A frame that
//     fails to decode is skipped, so the result may be shorter than n.
//
// Every failure to read media is reported as a model.KindMediaRead error.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// AudioExtension is the extension of files produced by ExtractAudio.
const AudioExtension = ".wav"

// Extractor is the contract the workflows depend on.
type Extractor interface {
	GetVideoInfo(ctx context.Context, path string) (*model.VideoInfo, error)
	ExtractAudio(ctx context.Context, path string) (string, error)
	ExtractFrames(ctx context.Context, path string, numFrames int) ([]*model.Frame, error)
	ExtractFrameAt(ctx context.Context, path string, offset float64) (*model.Frame, error)
}

// ProbedFrameExtractor is implemented by extractors that can sample frames
// from an already probed clip without probing it again.
type ProbedFrameExtractor interface {
	ExtractFramesWithInfo(ctx context.Context, path string, info *model.VideoInfo, numFrames int) ([]*model.Frame, error)
}

// FFmpegExtractor implements Extractor with the ffmpeg command line tools.
type FFmpegExtractor struct {
	FFmpegPath      string
	FFprobePath     string
	AudioSampleRate int
	FrameWidth      int
	FrameQuality    int
	Timeout         time.Duration // Per invocation; zero means no limit.
	Runner          CommandRunner
}

// NewFFmpegExtractor builds an extractor from the media configuration.
func NewFFmpegExtractor(config cloud.Media, runner CommandRunner) *FFmpegExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	out := &FFmpegExtractor{
		FFmpegPath:      config.FFmpegPath,
		FFprobePath:     config.FFprobePath,
		AudioSampleRate: config.AudioSampleRate,
		FrameWidth:      config.FrameWidth,
		FrameQuality:    config.FrameQuality,
		Timeout:         time.Duration(config.CommandTimeoutSeconds) * time.Second,
		Runner:          runner,
	}
	if out.FFmpegPath == "" {
		out.FFmpegPath = "ffmpeg"
	}
	if out.FFprobePath == "" {
		out.FFprobePath = "ffprobe"
	}
	if out.AudioSampleRate <= 0 {
		out.AudioSampleRate = 16000
	}
	if out.FrameQuality <= 0 {
		out.FrameQuality = 2
	}
	return out
}

func (f *FFmpegExtractor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	return f.Runner.Run(ctx, name, args...)
}

// probeOutput mirrors the parts of ffprobe's JSON output that are used.
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
		SampleRate   string `json:"sample_rate"`
		Channels     int    `json:"channels"`
	} `json:"streams"`
}

// GetVideoInfo reports duration and container level metadata for path.
func (f *FFmpegExtractor) GetVideoInfo(ctx context.Context, path string) (*model.VideoInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, model.NewMediaReadError("video-info", err)
	}
	output, err := f.run(ctx, f.FFprobePath,
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return nil, model.NewMediaReadError("video-info", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*model.VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, model.NewMediaReadError("video-info", fmt.Errorf("parse ffprobe output: %w", err))
	}

	info := &model.VideoInfo{
		FormatName: probe.Format.FormatName,
		Duration:   parseFloat(probe.Format.Duration),
		Size:       parseInt(probe.Format.Size),
		Bitrate:    parseInt(probe.Format.BitRate),
	}
	hasVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if hasVideo {
				continue
			}
			hasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			info.FrameRate = parseRate(stream.AvgFrameRate)
			if info.FrameRate == 0 {
				info.FrameRate = parseRate(stream.RFrameRate)
			}
			info.FrameCount = int(parseInt(stream.NbFrames))
			if info.Duration == 0 {
				info.Duration = parseFloat(stream.Duration)
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
			info.AudioSampleRate = int(parseInt(stream.SampleRate))
			info.AudioChannels = stream.Channels
		}
	}
	if !hasVideo {
		return nil, model.NewMediaReadError("video-info", errors.New("no video stream found"))
	}
	return info, nil
}

// AudioPathFor returns where ExtractAudio writes the audio of path.
func AudioPathFor(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, AudioExtension) {
		return path + ".audio" + AudioExtension
	}
	return strings.TrimSuffix(path, ext) + AudioExtension
}

// ExtractAudio decodes the audio track of path into a mono 16-bit PCM WAV
// file and returns its location.
func (f *FFmpegExtractor) ExtractAudio(ctx context.Context, path string) (string, error) {
	out := AudioPathFor(path)
	_, err := f.run(ctx, f.FFmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(f.AudioSampleRate),
		"-acodec", "pcm_s16le", "-f", "wav",
		out)
	if err != nil {
		_ = os.Remove(out)
		return "", model.NewMediaReadError("extract-audio", err)
	}
	stat, err := os.Stat(out)
	if err != nil {
		return "", model.NewMediaReadError("extract-audio", err)
	}
	if stat.Size() == 0 {
		_ = os.Remove(out)
		return "", model.NewMediaReadError("extract-audio", errors.New("no audio decoded"))
	}
	return out, nil
}

// SamplePositions returns numFrames offsets evenly spaced over duration,
// starting at zero and in increasing order. When the duration is unknown
// only the first frame is requested.
func SamplePositions(duration float64, numFrames int) []float64 {
	if numFrames <= 0 {
		return nil
	}
	if duration <= 0 {
		return []float64{0}
	}
	out := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		out[i] = float64(i) * duration / float64(numFrames)
	}
	return out
}

// ExtractFrames samples up to numFrames frames from path in temporal order.
func (f *FFmpegExtractor) ExtractFrames(ctx context.Context, path string, numFrames int) ([]*model.Frame, error) {
	if numFrames <= 0 {
		return nil, model.NewInternalError("extract-frames", fmt.Errorf("num_frames must be positive, got %d", numFrames))
	}
	info, err := f.GetVideoInfo(ctx, path)
	if err != nil {
		return nil, err
	}
	return f.ExtractFramesWithInfo(ctx, path, info, numFrames)
}

// ExtractFramesWithInfo is ExtractFrames for a clip whose probe result is
// already known.
func (f *FFmpegExtractor) ExtractFramesWithInfo(ctx context.Context, path string, info *model.VideoInfo, numFrames int) ([]*model.Frame, error) {
	if numFrames <= 0 {
		return nil, model.NewInternalError("extract-frames", fmt.Errorf("num_frames must be positive, got %d", numFrames))
	}
	if info == nil {
		return nil, model.NewInternalError("extract-frames", errors.New("missing video info"))
	}
	if info.FrameCount > 0 && info.FrameCount < numFrames {
		numFrames = info.FrameCount
	}

	frames := make([]*model.Frame, 0, numFrames)
	for _, offset := range SamplePositions(info.Duration, numFrames) {
		if err := ctx.Err(); err != nil {
			return nil, model.NewInternalError("extract-frames", err)
		}
		frame, err := f.ExtractFrameAt(ctx, path, offset)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable frame", "path", path, "offset", offset, "error", err)
			continue
		}
		frame.Index = len(frames)
		frames = append(frames, frame)
	}
	return frames, nil
}

// ExtractFrameAt decodes the single frame at offset seconds as a JPEG.
func (f *FFmpegExtractor) ExtractFrameAt(ctx context.Context, path string, offset float64) (*model.Frame, error) {
	if offset < 0 {
		offset = 0
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
	}
	if f.FrameWidth > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", f.FrameWidth))
	}
	args = append(args, "-q:v", strconv.Itoa(f.FrameQuality), "-f", "image2pipe", "-vcodec", "mjpeg", "pipe:1")

	data, err := f.run(ctx, f.FFmpegPath, args...)
	if err != nil {
		return nil, model.NewMediaReadError("extract-frame", err)
	}
	if len(data) == 0 {
		return nil, model.NewMediaReadError("extract-frame", fmt.Errorf("no frame at %.3fs", offset))
	}
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, model.NewMediaReadError("extract-frame", fmt.Errorf("output at %.3fs is not an image", offset))
	}
	return &model.Frame{Timestamp: offset, MIMEType: kind.MIME.Value, Data: data}, nil
}

func parseFloat(in string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(in string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(in), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRate converts an ffprobe rational such as "30000/1001" to a float.
func parseRate(in string) float64 {
	num, den, ok := strings.Cut(in, "/")
	if !ok {
		return parseFloat(in)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}
