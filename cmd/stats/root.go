package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/syncstore/cmd/util"
	"github.com/ValentinKolb/syncstore/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// StatsCmd prints engine info and metrics of a store
	StatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints engine info and metrics of a store",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
)

func init() {
	key := "process"
	StatsCmd.Flags().Bool(key, false, util.WrapString("Also print the metrics of the syncstore process"))
}

func run(cmd *cobra.Command, _ []string) error {
	backend, err := util.OpenBackend(cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	tracker, err := util.GetTracker(backend)
	if err != nil {
		return err
	}

	out := os.Stdout

	// Engine
	info, err := json.MarshalIndent(backend.Info(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ENGINE\n%s\n", info)

	version, err := backend.StoreVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSCHEMA\n  %-22s: %d\n  %-22s: %d\n  %-22s: %s\n",
		"Stored Version", version,
		"Supported Version", store.LatestSchemaVersion,
		"Init Outcome", backend.Outcome())

	// Tab nodes
	s := tracker.Pool().Stats()
	fmt.Fprintf(out, "\nTAB NODES\n  %-22s: %d\n  %-22s: %d\n  %-22s: %d\n  %-22s: %d\n",
		"Associated", s.Associated,
		"Free", s.Free,
		"Missing", s.Missing,
		"Max Used", s.MaxUsed)

	// Metrics
	fmt.Fprintln(out, "\nMETRICS")
	backend.Metrics().WritePrometheus(out)
	backend.Metrics().WriteTimers(out)

	if collector, ok := pebbledb.NewCollector(backend.Engine()); ok {
		if err := writeCollector(out, collector); err != nil {
			return err
		}
	}

	if viper.GetBool("process") {
		metrics.WriteProcessMetrics(out)
	}
	return nil
}

// writeCollector gathers c and writes one line per sample
func writeCollector(w io.Writer, c prometheus.Collector) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return err
	}
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), formatLabels(m.GetLabel()), sampleValue(mf.GetType(), m))
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	s := "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return s + "}"
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
