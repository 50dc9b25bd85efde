package common

import (
	"fmt"
	"os"
	"path/filepath"

	"dashboard-core-go/internal/models"

	"gopkg.in/yaml.v2"
)

type FeedsConfig struct {
	Feeds []models.FeedConfig `yaml:"feeds"`
}

// LoadFeedConfig reads the feed id to symbol mapping. Relative paths are
// resolved against the working directory.
func LoadFeedConfig(feedsFile string) ([]models.FeedConfig, error) {
	var feedsPath string
	if filepath.IsAbs(feedsFile) {
		feedsPath = feedsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		feedsPath = filepath.Join(wd, feedsFile)
	}

	data, err := os.ReadFile(feedsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", feedsFile, err)
	}

	var config FeedsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", feedsFile, err)
	}

	seen := make(map[string]bool, len(config.Feeds))
	for i, feed := range config.Feeds {
		if feed.Id == "" {
			return nil, fmt.Errorf("feed at index %d missing id", i)
		}
		if feed.Symbol == "" {
			return nil, fmt.Errorf("feed at index %d missing symbol", i)
		}
		if seen[feed.Symbol] {
			return nil, fmt.Errorf("symbol %s configured more than once", feed.Symbol)
		}
		seen[feed.Symbol] = true
	}

	return config.Feeds, nil
}
