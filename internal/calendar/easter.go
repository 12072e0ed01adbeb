package calendar

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/easter.yaml
var easterYAML []byte

var (
	easterOnce  sync.Once
	easterTable map[int]time.Time
	easterErr   error
)

func loadEaster() {
	var doc struct {
		Easter map[int]time.Time `yaml:"easter"`
	}
	if err := yaml.Unmarshal(easterYAML, &doc); err != nil {
		easterErr = fmt.Errorf("decode easter table: %w", err)
		return
	}
	easterTable = make(map[int]time.Time, len(doc.Easter))
	for year, d := range doc.Easter {
		easterTable[year] = Truncate(d)
	}
}

// Easter returns Easter Sunday for year from the embedded table.
func Easter(year int) (time.Time, error) {
	easterOnce.Do(loadEaster)
	if easterErr != nil {
		return time.Time{}, easterErr
	}
	d, ok := easterTable[year]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: easter %d", ErrYearNotCovered, year)
	}
	return d, nil
}
