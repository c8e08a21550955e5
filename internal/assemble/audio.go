package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"riso-reel/internal/logging"
)

// commandRunner executes an external tool.
type commandRunner func(ctx context.Context, name string, args ...string) error

// audioArgs copies the video stream and encodes the audio to AAC, stopping at
// the shorter of the two.
func audioArgs(video, audio, out string) []string {
	return []string{"-y", "-i", video, "-i", audio, "-c:v", "copy", "-c:a", "aac", "-shortest", out}
}

// muxAudio adds an audio track to a written video in place. It never fails
// the export: a missing tool is skipped quietly and other errors leave the
// silent video untouched.
func (a *Assembler) muxAudio(ctx context.Context, video, audio string) bool {
	if _, err := os.Stat(audio); err != nil {
		a.logger.Warn("audio track not found, keeping silent video",
			logging.String("audio", audio),
			logging.Error(err))
		return false
	}

	tool := a.settings.FFmpeg
	if tool == "" {
		tool = "ffmpeg"
	}
	tmp := tempSibling(video, "mux")

	a.logger.Debug("muxing audio",
		logging.String("video", video),
		logging.String("audio", audio),
		logging.String("tool", tool))

	if err := a.run(ctx, tool, audioArgs(video, audio, tmp)...); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, exec.ErrNotFound) {
			a.logger.Debug("audio mux skipped, tool not installed", logging.String("tool", tool))
			return false
		}
		a.logger.Warn("audio mux failed, keeping silent video", logging.Error(err))
		return false
	}
	if _, err := os.Stat(tmp); err != nil {
		a.logger.Warn("audio mux produced no output, keeping silent video", logging.Error(err))
		return false
	}
	if err := os.Rename(tmp, video); err != nil {
		_ = os.Remove(tmp)
		a.logger.Warn("audio mux could not replace video", logging.Error(err))
		return false
	}
	a.logger.Info("audio muxed", logging.String("video", video))
	return true
}

// defaultCommandRunner executes external commands.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
