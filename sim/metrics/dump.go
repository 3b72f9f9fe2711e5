package metrics

import (
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/common/expfmt"
)

// WriteSnapshot gathers every metric family from the collector and writes it
// in the Prometheus text exposition format, sorted by family name.
func (c *Collector) WriteSnapshot(w io.Writer) error {
	families, err := c.Gatherer().Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
