// Package region resolves a delivery region from free text using an external
// locality-to-region table.
package region

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// tableEntry mirrors the matches file shape: region -> {matches: [locality...]}.
type tableEntry struct {
	Matches []string `json:"matches" yaml:"matches"`
}

// Resolver matches localities against free text, case-insensitively.
// Regions are scanned in sorted order so resolution is deterministic.
type Resolver struct {
	table         map[string]tableEntry
	regions       []string
	defaultRegion string
}

// Load reads the matches table from a JSON or YAML file (by extension).
func Load(path, defaultRegion string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches file: %w", err)
	}

	table := make(map[string]tableEntry)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse matches file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse matches file: %w", err)
		}
	}

	return New(tableToMap(table), defaultRegion), nil
}

func tableToMap(table map[string]tableEntry) map[string][]string {
	m := make(map[string][]string, len(table))
	for region, entry := range table {
		m[region] = entry.Matches
	}
	return m
}

// New builds a resolver from an in-memory table.
func New(table map[string][]string, defaultRegion string) *Resolver {
	entries := make(map[string]tableEntry, len(table))
	regions := make([]string, 0, len(table))
	for region, matches := range table {
		entries[region] = tableEntry{Matches: matches}
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return &Resolver{table: entries, regions: regions, defaultRegion: defaultRegion}
}

// Resolve scans the title first, then each candidate string, and falls back
// to the configured default region. The result is "Region, Locality" when a
// locality matched, otherwise the default region verbatim.
func (r *Resolver) Resolve(title string, candidates ...string) string {
	if place := r.find(title); place != "" {
		return place
	}
	for _, c := range candidates {
		if place := r.find(c); place != "" {
			return place
		}
	}
	if place := r.find(r.defaultRegion); place != "" {
		return place
	}
	return r.defaultRegion
}

func (r *Resolver) find(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, region := range r.regions {
		for _, locality := range r.table[region].Matches {
			if locality == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(locality)) {
				return fmt.Sprintf("%s, %s", region, capitalize(locality))
			}
		}
	}
	return ""
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
}
