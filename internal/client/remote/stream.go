package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/obralink/obralink/internal/entity"
)

// maxFrameSize caps a single change-event frame.
const maxFrameSize = 1 << 20

// Subscribe opens the SSE change stream for one table slice and decodes its
// frames into Events. The server sends no acknowledgements and applies no
// backpressure; whatever the stream drops, the next poll pass picks up.
// Cancelling ctx closes the stream and the returned channel.
func (c *HTTPClient) Subscribe(ctx context.Context, kind entity.Kind, f entity.Filter) (<-chan Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/"+string(kind)+"/events", filterQuery(f), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream responded %d", resp.StatusCode)
	}

	events := make(chan Event, 16)

	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		// a frame carries a whole entity body; the scanner's default
		// 64 KiB token limit is too small for large records
		scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
		for scanner.Scan() {
			line := scanner.Text()
			// comment lines are keep-alives, blank lines end a frame
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				c.log.Warn(ctx, "dropping malformed change event", "kind", kind, "error", err)
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.log.Warn(ctx, "event stream closed", "kind", kind, "error", err)
		}
	}()

	return events, nil
}
