package importer

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/models"
)

// A Source yields historical records from external log files. Each period
// is one source file, processed as a unit; periods are returned in
// chronological (lexical) order.
type Source interface {
	Periods() ([]string, error)
	ReadPeriod(name string) ([]models.ArchiveRecord, error)
}

// NewSource builds the source named by the import config.
func NewSource(cfg *config.ImportConfig) (Source, error) {
	switch cfg.Source {
	case "csv":
		return &CSVSource{cfg: cfg}, nil
	case "cumulus":
		return &CumulusSource{cfg: cfg}, nil
	}
	return nil, fmt.Errorf("unknown source type %q", cfg.Source)
}

func globPeriods(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad source path pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no source files match %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}
