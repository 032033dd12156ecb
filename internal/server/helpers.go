package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WaitForRooms polls /rooms until the server answers or ctx is done, and returns
// the open rooms. serverURL may use an http(s) or ws(s) scheme.
func WaitForRooms(ctx context.Context, serverURL string) ([]RoomInfo, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path, u.RawQuery = "/rooms", ""
	roomsURL := u.String()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if rooms, err := fetchRooms(ctx, client, roomsURL); err == nil {
			return rooms, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchRooms(ctx context.Context, client *http.Client, roomsURL string) ([]RoomInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roomsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var rooms []RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}
