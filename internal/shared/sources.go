package shared

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cinema_catalog/internal/adapters/feed"
)

// sourcesFile is the on-disk shape of SOURCES_FILE:
//
//	[[source]]
//	name = "kino-nord"
//	url = "https://feeds.example/nord.json"
//	api_key = "..."
//	rps = 5
//	timeout_seconds = 20
//	timezone = "Europe/Oslo"
type sourcesFile struct {
	Sources []sourceEntry `toml:"source"`
}

type sourceEntry struct {
	Name           string `toml:"name"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	RPS            int    `toml:"rps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Timezone       string `toml:"timezone"`
}

// LoadSources resolves the feed list: the TOML file when set, else the
// "name=url,name=url" form of SOURCES.
func LoadSources(c Config) ([]feed.Config, error) {
	if c.SourcesFile != "" {
		b, err := os.ReadFile(c.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("read sources file: %w", err)
		}
		return ParseSourcesTOML(b)
	}
	return ParseSourcesEnv(c.Sources)
}

func ParseSourcesTOML(b []byte) ([]feed.Config, error) {
	var f sourcesFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	out := make([]feed.Config, 0, len(f.Sources))
	seen := map[string]bool{}
	for i, s := range f.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source #%d: name and url are required", i+1)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("source %q listed twice", s.Name)
		}
		seen[s.Name] = true
		cfg := feed.Config{
			Name:    s.Name,
			URL:     s.URL,
			APIKey:  s.APIKey,
			RPS:     s.RPS,
			Timeout: time.Duration(s.TimeoutSeconds) * time.Second,
		}
		if s.Timezone != "" {
			loc, err := time.LoadLocation(s.Timezone)
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", s.Name, err)
			}
			cfg.Location = loc
		}
		out = append(out, cfg)
	}
	return out, nil
}

func ParseSourcesEnv(v string) ([]feed.Config, error) {
	var out []feed.Config
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("bad SOURCES entry %q, want name=url", part)
		}
		out = append(out, feed.Config{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return out, nil
}
