package demod

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVHeader is the first row of a metrics file.
var CSVHeader = []string{
	"Interval", "Hamming", "Sample rate", "Bit Rate", "Total Errors", "Error Rate",
	"Corrected Errors", "Correction Rate", "Meaningful Errors", "Throughput",
	"Transfer Time", "Accuracy", "Raw message", "Message", "String",
}

func ms(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Millisecond), 10)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row formats a result as a metrics row.
func Row(params Params, r *Result) []string {
	m := &r.Metrics
	corrected, correctionRate := "N/A", "N/A"
	if params.FEC {
		corrected, correctionRate = strconv.Itoa(m.CorrectedErrors), ftoa(m.CorrectionRate)
	}
	return []string{
		ms(params.BitTime),
		strconv.FormatBool(params.FEC),
		ms(params.SampleInterval),
		ftoa(m.BitRate),
		strconv.Itoa(m.TotalErrors),
		ftoa(m.ErrorRate),
		corrected,
		correctionRate,
		strconv.Itoa(m.MeaningfulErrors),
		ftoa(m.Throughput),
		ftoa(m.TransferTime.Seconds()),
		ftoa(m.Accuracy),
		r.Raw.String(),
		r.Message.String(),
		r.Readable,
	}
}

// AppendCSV appends the metrics row to path, writing CSVHeader first
// when the file is new or empty.
func AppendCSV(path string, params Params, r *Result) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err = w.Write(CSVHeader); err != nil {
			return err
		}
	}
	if err = w.Write(Row(params, r)); err != nil {
		return err
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return err
	}
	return f.Close()
}
