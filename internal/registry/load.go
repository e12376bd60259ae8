package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

const downloadTimeout = 30 * time.Second

// Declared is one entry of the declarative source list.
type Declared struct {
	Name              string            `yaml:"name"`
	Type              models.SourceType `yaml:"type"`
	URL               string            `yaml:"url"`
	Language          string            `yaml:"language"`
	ReliabilityWeight *float64          `yaml:"reliabilityWeight"`
	IsActive          *bool             `yaml:"isActive"`
}

type yamlFile struct {
	Sources []Declared `yaml:"sources"`
}

// Load reads the declared source list from a local file or an http(s) URL.
// Files ending in .csv use the CSV layout; everything else is parsed as YAML,
// either a top-level list or a document with a "sources" key.
func Load(ctx context.Context, location string) ([]Declared, error) {
	raw, err := readLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(stripQuery(location)), ".csv") {
		return ParseCSV(bytes.NewReader(raw))
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a YAML source list.
func ParseYAML(raw []byte) ([]Declared, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, errs.Wrap(errs.ErrParse, "load sources", "invalid yaml", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []Declared
		if err := root.Decode(&list); err != nil {
			return nil, errs.Wrap(errs.ErrParse, "load sources", "invalid source list", err)
		}
		return list, nil
	}

	var file yamlFile
	if err := root.Decode(&file); err != nil {
		return nil, errs.Wrap(errs.ErrParse, "load sources", "invalid sources document", err)
	}
	return file.Sources, nil
}

// ParseCSV decodes a CSV source list with a header row. The url column is
// required; name, type, language, reliability_weight and is_active are optional.
func ParseCSV(r io.Reader) ([]Declared, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errs.Wrap(errs.ErrParse, "load sources", "missing csv header", err)
	}
	log.Debug().Strs("header", header).Msg("CSV header read")

	urlIdx := findColumnIndex(header, "url")
	if urlIdx < 0 {
		return nil, errs.Wrap(errs.ErrValidation, "load sources", "required column 'url' not found in CSV header", nil)
	}
	nameIdx := findColumnIndex(header, "name")
	typeIdx := findColumnIndex(header, "type")
	languageIdx := findColumnIndex(header, "language")
	weightIdx := findColumnIndex(header, "reliability_weight")
	activeIdx := findColumnIndex(header, "is_active")

	var declared []Declared
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Error reading CSV line")
			continue
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		d := Declared{
			URL:      safeGetValue(record, urlIdx),
			Name:     safeGetValue(record, nameIdx),
			Type:     models.SourceType(safeGetValue(record, typeIdx)),
			Language: safeGetValue(record, languageIdx),
		}
		if v := safeGetValue(record, weightIdx); v != "" {
			w, err := strconv.ParseFloat(v, 64)
			if err != nil {
				log.Warn().Int("line", line).Str("value", v).Msg("Ignoring invalid reliability_weight")
			} else {
				d.ReliabilityWeight = &w
			}
		}
		if v := safeGetValue(record, activeIdx); v != "" {
			active, err := strconv.ParseBool(v)
			if err != nil {
				log.Warn().Int("line", line).Str("value", v).Msg("Ignoring invalid is_active")
			} else {
				d.IsActive = &active
			}
		}
		declared = append(declared, d)
	}
	return declared, nil
}

func readLocation(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		raw, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read source list %s: %w", location, err)
		}
		log.Debug().Str("path", location).Msg("Using local source list")
		return raw, nil
	}

	log.Info().Str("url", location).Msg("Downloading source list")
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build source list request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, "download source list", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.ErrFetch, "download source list", fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, "download source list", "read body", err)
	}
	log.Debug().Int("bytes", len(raw)).Msg("Downloaded source list")
	return raw, nil
}

func stripQuery(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the trimmed value at index, or "" when out of range.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
