package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// City represents a city configuration
type City struct {
	Name      string    `json:"name" yaml:"name"`
	Center    []float64 `json:"center" yaml:"center"`
	ZoomLevel int       `json:"zoom_level" yaml:"zoom_level"`
}

type citiesFile struct {
	Cities []City `yaml:"cities"`
}

var defaultCities = []City{
	{
		Name:      "paris",
		Center:    []float64{48.8566, 2.3522},
		ZoomLevel: 12,
	},
}

var (
	citiesMu        sync.RWMutex
	SupportedCities = cloneCities(defaultCities)
)

// LoadCities replaces the supported cities with the ones in a YAML file:
//
//	cities:
//	  - name: paris
//	    center: [48.8566, 2.3522]
//	    zoom_level: 12
func LoadCities(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read cities file: %w", err)
	}

	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("cannot parse cities file: %w", err)
	}
	if len(f.Cities) == 0 {
		return fmt.Errorf("cities file %q defines no cities", path)
	}
	for i, c := range f.Cities {
		if c.Name == "" || len(c.Center) != 2 {
			return fmt.Errorf("city %d: name and a [lat, lng] center are required", i)
		}
		f.Cities[i].Name = NormalizeCity(c.Name)
	}

	citiesMu.Lock()
	SupportedCities = f.Cities
	citiesMu.Unlock()
	return nil
}

// ResetCities restores the built-in city list.
func ResetCities() {
	citiesMu.Lock()
	SupportedCities = cloneCities(defaultCities)
	citiesMu.Unlock()
}

func NormalizeCity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetCityNames returns a list of supported city names
func GetCityNames() []string {
	citiesMu.RLock()
	defer citiesMu.RUnlock()

	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name
func GetCityByName(name string) *City {
	citiesMu.RLock()
	defer citiesMu.RUnlock()

	name = NormalizeCity(name)
	for _, city := range SupportedCities {
		if city.Name == name {
			c := city
			return &c
		}
	}
	return nil
}

func cloneCities(cities []City) []City {
	out := make([]City, len(cities))
	for i, c := range cities {
		out[i] = City{Name: c.Name, Center: append([]float64(nil), c.Center...), ZoomLevel: c.ZoomLevel}
	}
	return out
}
