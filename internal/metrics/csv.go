package metrics

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wgwatch/internal/model"
)

var csvHeader = []string{
	"timestamp",
	"interface",
	"public_key",
	"name",
	"rx_bytes_per_sec",
	"tx_bytes_per_sec",
	"rx_alert",
	"tx_alert",
}

// WriteCSV writes samples to CSV with a fixed column order.
func WriteCSV(w io.Writer, items []model.Sample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	if err := writeRecords(writer, items); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// AppendCSV appends samples to path, writing the header only when the file is new.
func AppendCSV(path string, items []model.Sample) error {
	if len(items) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := writeRecords(writer, items); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func writeRecords(writer *csv.Writer, items []model.Sample) error {
	for _, s := range items {
		record := []string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			s.Interface,
			s.PublicKey,
			s.Name,
			strconv.FormatFloat(s.RxBytesPerSec, 'f', 3, 64),
			strconv.FormatFloat(s.TxBytesPerSec, 'f', 3, 64),
			string(s.RxAlert),
			string(s.TxAlert),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// SamplesFromReport flattens the rated peers of a report into log samples.
func SamplesFromReport(r model.Report) []model.Sample {
	if !r.Available {
		return nil
	}
	var out []model.Sample
	for key, p := range r.Peers {
		if p.Rate == nil {
			continue
		}
		s := model.Sample{
			Timestamp:     r.CollectedAt,
			Interface:     r.Interface.Name,
			PublicKey:     key,
			Name:          p.Name,
			RxBytesPerSec: p.Rate.RxBytesPerSec,
			TxBytesPerSec: p.Rate.TxBytesPerSec,
			RxAlert:       model.AlertDefault,
			TxAlert:       model.AlertDefault,
		}
		if p.Alert != nil {
			s.RxAlert = p.Alert.Rx
			s.TxAlert = p.Alert.Tx
		}
		out = append(out, s)
	}
	sortSamples(out)
	return out
}

// SampleLog appends every available report to a CSV file.
type SampleLog struct {
	Path   string
	Logger *slog.Logger
}

func (l SampleLog) Publish(r model.Report) {
	if l.Path == "" {
		return
	}
	if err := AppendCSV(l.Path, SamplesFromReport(r)); err != nil && l.Logger != nil {
		l.Logger.Warn("append samples failed", "path", l.Path, "err", err)
	}
}
