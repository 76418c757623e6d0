package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/scoundrel-labs/warchest/internal/hud"
)

// hubEventLine is the on-disk JSON-Lines shape of a HubEvent.
type hubEventLine struct {
	Event string         `json:"event"`
	Ts    int64          `json:"ts"`
	Alias string         `json:"alias"`
	Data  hud.TxSummary  `json:"data"`
}

// TailHubEventsLog follows path from its current end-of-file, applying
// each well-formed line to reg. Malformed lines are skipped with a
// warning rather than crashing the service.
func TailHubEventsLog(ctx context.Context, path string, reg *hud.Registry, log zerolog.Logger) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				line, err := reader.ReadString('\n')
				if len(line) == 0 && err != nil {
					break
				}
				if len(line) > 0 {
					applyLine(line, reg, log)
				}
				if err != nil {
					break
				}
			}
		}
	}
}

func applyLine(line string, reg *hud.Registry, log zerolog.Logger) {
	var ev hubEventLine
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		log.Warn().Err(err).Msg("hub: skipping malformed hub-events log line")
		return
	}
	reg.ApplyHubEventToState(hud.HubEvent{Event: ev.Event, Ts: ev.Ts, Alias: ev.Alias, Data: ev.Data})
}
