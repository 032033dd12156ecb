// Package history records completed rounds as TOML files.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/fileutil"
	"github.com/lox/chinesepoker/poker"
)

var ErrIncompleteRound = errors.New("round is not complete")

// NewRecord builds the record of a completed round.
func NewRecord(room string, round int, r *chinese.Round, at time.Time) (*Record, error) {
	if !r.Complete() {
		return nil, ErrIncompleteRound
	}

	rec := &Record{
		Variant:   Variant,
		Room:      room,
		Round:     round,
		Button:    r.Button(),
		Time:      at.UTC().Format(time.RFC3339),
		TimeZone:  "UTC",
		Timestamp: at,
	}
	for _, p := range r.Players() {
		ev, err := p.Evaluate()
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", p.ID, err)
		}
		rec.Players = append(rec.Players, p.ID)
		rec.Seats = append(rec.Seats, Seat{
			Player:     p.ID,
			Name:       p.Name,
			Dealt:      displays(p.Cards),
			Top:        displays(p.SlotCards(chinese.Top)),
			Middle:     displays(p.SlotCards(chinese.Middle)),
			Bottom:     displays(p.SlotCards(chinese.Bottom)),
			TopHand:    ev.Top.Description(),
			MiddleHand: ev.Middle.Description(),
			BottomHand: ev.Bottom.Description(),
		})
	}
	return rec, nil
}

func displays(cards []poker.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Display()
	}
	return out
}

// Encode writes the record as TOML.
func Encode(w io.Writer, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("history: record is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(rec)
}

// Decode reads a record written by Encode.
func Decode(r io.Reader) (*Record, error) {
	var rec Record
	if _, err := toml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, rec.Time); err == nil {
		rec.Timestamp = ts
	}
	return &rec, nil
}

// Writer stores records in Dir as <room>-<round>.toml.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Path returns the file a record for room and round is written to.
func (w *Writer) Path(room string, round int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s-%d.toml", room, round))
}

// Write records a completed round and returns the file path.
func (w *Writer) Write(room string, round int, r *chinese.Round, at time.Time) (string, error) {
	rec, err := NewRecord(room, round, r, at)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("history: create directory: %w", err)
	}
	path := w.Path(room, round)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("history: %w", err)
	}
	return path, nil
}
