package entities

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnknownSource = errors.New("unknown source")

type Source string

const (
	SamGov            Source = "sam.gov"
	Dodge             Source = "dodge"
	ConstructionCom   Source = "construction.com"
	NYCOpenData       Source = "nyc.opendata"
	ShovelsAI         Source = "shovels.ai"
	AutodeskACC       Source = "autodesk_acc"
	BuildingConnected Source = "building_connected"
	PoptavkyCz        Source = "poptavky.cz"
	Custom            Source = "custom"
)

var knownSources = []Source{
	SamGov, Dodge, ConstructionCom, NYCOpenData, ShovelsAI, AutodeskACC, BuildingConnected, PoptavkyCz, Custom,
}

func KnownSources() []Source {
	return append([]Source(nil), knownSources...)
}

func (s Source) Valid() bool {
	for _, known := range knownSources {
		if s == known {
			return true
		}
	}
	return false
}

func ParseSource(s string) (Source, error) {
	source := Source(s)
	if !source.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return source, nil
}

func ParseSources(values []string) ([]Source, error) {
	sources := make([]Source, 0, len(values))
	for _, value := range values {
		source, err := ParseSource(value)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}
