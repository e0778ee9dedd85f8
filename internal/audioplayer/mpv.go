package audioplayer

import (
	"context"
	"os/exec"
)

// MPVBackend shells out to the mpv media player for local files and
// remote URLs alike, grounded on the wake-word/TTS playback pattern
// used in the distilled system's voice/mpv_player.py collaborator.
type MPVBackend struct {
	// BinaryPath defaults to "mpv" found on PATH when empty.
	BinaryPath string
}

func (b MPVBackend) Run(ctx context.Context, uri string) error {
	bin := b.BinaryPath
	if bin == "" {
		bin = "mpv"
	}
	cmd := exec.CommandContext(ctx, bin, "--no-video", "--really-quiet", uri)
	return cmd.Run()
}
