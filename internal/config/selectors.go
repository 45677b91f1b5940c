package config

import (
	"fmt"
	"os"
	"path/filepath"

	"ceneo-opinions/internal/scraper"
)

// layoutFile is the on-disk shape of a site layout.
type layoutFile struct {
	BaseURL        string              `yaml:"base_url"`
	ProductPath    string              `yaml:"product_path"`
	ReviewSelector string              `yaml:"review_selector"`
	ProductName    scraper.FieldSpec   `yaml:"product_name"`
	ReviewCount    scraper.FieldSpec   `yaml:"review_count"`
	NextPage       scraper.FieldSpec   `yaml:"next_page"`
	Recommend      string              `yaml:"recommend"`
	NotRecommend   string              `yaml:"not_recommend"`
	Fields         []scraper.FieldSpec `yaml:"fields"`
}

// LoadLayout reads a site layout from YAML. Missing top-level keys fall
// back to the built-in Ceneo layout; the field list, when present,
// replaces the default registry as a whole.
func LoadLayout(filePath string) (scraper.Layout, error) {
	if filePath == "" {
		return scraper.Layout{}, fmt.Errorf("layout file path is empty")
	}

	var lf layoutFile
	if err := decodeYAML(filePath, &lf); err != nil {
		return scraper.Layout{}, fmt.Errorf("layout: %w", err)
	}

	layout, err := lf.toLayout()
	if err != nil {
		return scraper.Layout{}, err
	}
	if err := layout.Validate(); err != nil {
		return scraper.Layout{}, err
	}
	return layout, nil
}

func (lf layoutFile) toLayout() (scraper.Layout, error) {
	layout := scraper.DefaultLayout()

	if lf.BaseURL != "" {
		layout.BaseURL = lf.BaseURL
	}
	if lf.ProductPath != "" {
		layout.ProductPath = lf.ProductPath
	}
	if lf.ReviewSelector != "" {
		layout.ReviewSelector = lf.ReviewSelector
	}
	if lf.ProductName.Selector != "" {
		layout.ProductName = withName(lf.ProductName, "product_name")
	}
	if lf.ReviewCount.Selector != "" {
		layout.ReviewCount = withName(lf.ReviewCount, "review_count")
	}
	if lf.NextPage.Selector != "" {
		layout.NextPage = withName(lf.NextPage, "next_page")
	}
	if lf.Recommend != "" {
		layout.Recommend = lf.Recommend
	}
	if lf.NotRecommend != "" {
		layout.NotRecommend = lf.NotRecommend
	}

	if len(lf.Fields) > 0 {
		registry, err := scraper.NewRegistry(lf.Fields...)
		if err != nil {
			return scraper.Layout{}, fmt.Errorf("layout fields: %w", err)
		}
		layout.Registry = registry
	}
	return layout, nil
}

func withName(spec scraper.FieldSpec, name string) scraper.FieldSpec {
	if spec.Name == "" {
		spec.Name = name
	}
	return spec
}

// Layout resolves the configured layout. Relative paths are taken
// relative to the configs directory, the way the repository ships them.
func (c *Config) Layout() (scraper.Layout, error) {
	if c.Site.LayoutFile == "" {
		return scraper.DefaultLayout(), nil
	}
	filePath := c.Site.LayoutFile
	if !filepath.IsAbs(filePath) {
		if _, err := os.Stat(filePath); err != nil {
			filePath = filepath.Join("configs", filePath)
		}
	}
	return LoadLayout(filePath)
}
