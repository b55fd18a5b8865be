// Package registry loads the source registry: the list of external feeds
// the pipeline ingests from.
package registry

import (
	"net/url"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scoutline/curator/internal/model"
)

// Source kinds supported by the built-in adapters.
const (
	KindRSS  = "rss"
	KindJSON = "json"
)

// Source describes one external feed.
type Source struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // rss | json
	URL      string `yaml:"url"`
	Category string `yaml:"category"` // project | funding | resource
	Origin   string `yaml:"origin,omitempty"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads and validates the registry file. Malformed entries are
// skipped with a warning rather than failing the whole registry.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}

	var sources []Source
	for _, src := range file.Sources {
		if err := validate(&src); err != nil {
			zap.L().Warn("registry: skipping malformed source",
				zap.String("name", src.Name),
				zap.Error(err),
			)
			continue
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func validate(src *Source) error {
	if src.Name == "" {
		return eris.New("missing name")
	}
	if src.Kind != KindRSS && src.Kind != KindJSON {
		return eris.Errorf("unknown kind %q", src.Kind)
	}
	u, err := url.Parse(src.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return eris.Errorf("invalid url %q", src.URL)
	}
	if _, err := model.ParseCategory(src.Category); err != nil {
		return err
	}
	if src.Origin == "" {
		src.Origin = u.Host
	}
	return nil
}
