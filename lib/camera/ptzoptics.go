package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/after5cst/gracecam/lib/position"
)

type Driver interface {
	Recall(ctx context.Context, cam *Camera, preset position.Position) error
}

// PTZOptics recalls presets through the camera's CGI endpoint. The camera
// answers as soon as the command is accepted, not when the move ends.
type PTZOptics struct {
	Client *http.Client
}

func NewPTZOptics(timeout time.Duration) *PTZOptics {
	return &PTZOptics{Client: &http.Client{Timeout: timeout}}
}

func PresetURL(address string, preset position.Position) string {
	return fmt.Sprintf("http://%s/cgi-bin/ptzctrl.cgi?ptzcmd&poscall&%d", address, int(preset))
}

func (d *PTZOptics) Recall(ctx context.Context, cam *Camera, preset position.Position) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PresetURL(cam.Address, preset), nil)
	if err != nil {
		return fmt.Errorf("camera %s: %w", cam.Name, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("camera %s: %w", cam.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("camera %s: %s", cam.Name, resp.Status)
	}
	return nil
}
