package edfset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// rating is one row of the self-report table.
type rating struct {
	participantID int
	mediaID       int
	arousal       float64
	valence       float64
}

// ratingColumns maps each required field to the header names it may appear
// under, since ratings exports differ between labs.
var ratingColumns = map[string][]string{
	"participant": {"participant_id", "participant"},
	"media":       {"media_id", "media"},
	"arousal":     {"arousal"},
	"valence":     {"valence"},
}

// findRatings locates the ratings table when no explicit path is
// configured: the first CSV file in the recording directory.
func findRatings(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV files found in %s", dir)
	}
	return matches[0], nil
}

// readRatings parses the ratings table. Columns are located by header name
// so column order does not matter.
func readRatings(path string) ([]rating, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings table %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}

	fields := make(map[string]int, len(ratingColumns))
	for field, names := range ratingColumns {
		idx := -1
		for _, name := range names {
			if i, ok := colIndex[name]; ok {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("ratings table %s has no %s column", path, field)
		}
		fields[field] = idx
	}

	var ratings []rating
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ratings row: %w", err)
		}
		row++

		r, err := parseRating(record, fields)
		if err != nil {
			return nil, fmt.Errorf("invalid ratings row %d in %s: %w", row, path, err)
		}
		ratings = append(ratings, r)
	}
	return ratings, nil
}

func parseRating(record []string, fields map[string]int) (rating, error) {
	var r rating
	var err error

	if r.participantID, err = parseIntField(record, fields["participant"]); err != nil {
		return rating{}, fmt.Errorf("participant: %w", err)
	}
	if r.mediaID, err = parseIntField(record, fields["media"]); err != nil {
		return rating{}, fmt.Errorf("media: %w", err)
	}
	if r.arousal, err = parseFloatField(record, fields["arousal"]); err != nil {
		return rating{}, fmt.Errorf("arousal: %w", err)
	}
	if r.valence, err = parseFloatField(record, fields["valence"]); err != nil {
		return rating{}, fmt.Errorf("valence: %w", err)
	}
	return r, nil
}

func parseIntField(record []string, idx int) (int, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("missing column %d", idx)
	}
	return strconv.Atoi(strings.TrimSpace(record[idx]))
}

func parseFloatField(record []string, idx int) (float64, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("missing column %d", idx)
	}
	return strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
}
