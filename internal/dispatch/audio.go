package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/shichaoxia/baby-monitor/internal/logger"
)

// AudioPlayer plays the local notification cue to completion.
// Implementations shell out to a platform player so no process-wide audio
// engine state is shared with the pipeline.
type AudioPlayer interface {
	Play(ctx context.Context) error
}

// NewAudioPlayer selects the platform player once at construction. When the
// audio asset is missing the cue degrades to a logged no-op instead of
// failing startup.
func NewAudioPlayer(assetPath string) AudioPlayer {
	if _, err := os.Stat(assetPath); err != nil {
		logger.Warn("Audio", "Audio cue %s not found, cue disabled", assetPath)
		return noopPlayer{}
	}

	switch runtime.GOOS {
	case "darwin":
		return &commandPlayer{name: "afplay", args: []string{assetPath}}
	case "windows":
		psCmd := fmt.Sprintf("(New-Object System.Media.SoundPlayer '%s').PlaySync()", assetPath)
		return &commandPlayer{name: "powershell", args: []string{"-c", psCmd}}
	default:
		for _, candidate := range []string{"mpg123", "ffplay", "paplay"} {
			if _, err := exec.LookPath(candidate); err != nil {
				continue
			}
			args := []string{assetPath}
			if candidate == "ffplay" {
				args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", assetPath}
			}
			return &commandPlayer{name: candidate, args: args}
		}
		logger.Warn("Audio", "No audio player found on PATH, cue disabled")
		return noopPlayer{}
	}
}

type commandPlayer struct {
	name string
	args []string
}

func (p *commandPlayer) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

type noopPlayer struct{}

func (noopPlayer) Play(context.Context) error { return nil }
