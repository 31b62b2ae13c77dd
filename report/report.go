// Package report renders analysis results as text tables and exports the
// full result set as JSON for downstream visualization.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mbeckman/unrate/autoarima"
	"github.com/mbeckman/unrate/eval"
	"github.com/mbeckman/unrate/stats"
	"github.com/mbeckman/unrate/timeseries"
)

// StationarityRow is one unit-root or stationarity test result.
type StationarityRow struct {
	Test         string  `json:"test"`
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	Lags         int     `json:"lags"`
	IsStationary bool    `json:"is_stationary"`
}

// Diagnostics bundles a candidate's residual test results.
type Diagnostics struct {
	LjungBox     *stats.LjungBoxResult
	BoxPierce    *stats.BoxPierceResult
	DurbinWatson *float64
}

// ModelResult is one candidate's fit, diagnostics, and test-set accuracy.
// Fit and accuracy metrics are pointers so a legitimate zero survives the
// export while absent values are omitted.
type ModelResult struct {
	Name         string     `json:"name"`
	Order        string     `json:"order"`
	Converged    bool       `json:"converged"`
	RootsOK      bool       `json:"roots_ok"`
	AICc         *float64   `json:"aicc,omitempty"`
	BIC          *float64   `json:"bic,omitempty"`
	LogLik       *float64   `json:"log_lik,omitempty"`
	Sigma2       *float64   `json:"sigma2,omitempty"`
	LjungBoxQ    *float64   `json:"ljung_box_q,omitempty"`
	LjungBoxP    *float64   `json:"ljung_box_p,omitempty"`
	BoxPierceQ   *float64   `json:"box_pierce_q,omitempty"`
	BoxPierceP   *float64   `json:"box_pierce_p,omitempty"`
	DurbinWatson *float64   `json:"durbin_watson,omitempty"`
	ME           *float64   `json:"me,omitempty"`
	RMSE         *float64   `json:"rmse,omitempty"`
	MAE          *float64   `json:"mae,omitempty"`
	MPE          *float64   `json:"mpe,omitempty"`
	MAPE         *float64   `json:"mape,omitempty"`
	Forecast     []float64  `json:"forecast,omitempty"`
	Lower        []float64  `json:"lower,omitempty"`
	Upper        []float64  `json:"upper,omitempty"`
	Level        float64    `json:"level,omitempty"`
	FitError     string     `json:"fit_error,omitempty"`
	Selected     bool       `json:"selected"`
}

// Output is the full JSON export: the data, the tests, every candidate, and
// the selected model's forecast.
type Output struct {
	Name         string            `json:"name"`
	GeneratedAt  time.Time         `json:"generated_at"`
	NObs         int               `json:"n_obs"`
	Timestamps   []string          `json:"timestamps"`
	TrainData    []float64         `json:"train_data"`
	TestData     []float64         `json:"test_data"`
	Lambda       *float64          `json:"box_cox_lambda,omitempty"`
	Stationarity []StationarityRow `json:"stationarity"`
	ACF          []float64         `json:"acf"`
	PACF         []float64         `json:"pacf"`
	Models       []ModelResult     `json:"models"`
}

// NewOutput assembles the export skeleton from the split series.
func NewOutput(name string, train, test *timeseries.Series) *Output {
	n := train.Len() + test.Len()
	timestamps := make([]string, 0, n)
	for _, ts := range train.Timestamps {
		timestamps = append(timestamps, ts.Format("2006-01-02"))
	}
	for _, ts := range test.Timestamps {
		timestamps = append(timestamps, ts.Format("2006-01-02"))
	}
	return &Output{
		Name:        name,
		GeneratedAt: time.Now().UTC(),
		NObs:        n,
		Timestamps:  timestamps,
		TrainData:   append([]float64(nil), train.Values...),
		TestData:    append([]float64(nil), test.Values...),
	}
}

// AddStationarity records ADF, KPSS, and Phillips-Perron results for the
// export and tables.
func (o *Output) AddStationarity(adf *stats.ADFResult, kpss *stats.KPSSResult, pp *stats.PhillipsPerronResult) {
	if adf != nil {
		o.Stationarity = append(o.Stationarity, StationarityRow{
			Test:         "ADF",
			Statistic:    adf.Statistic,
			PValue:       adf.PValue,
			Lags:         adf.Lags,
			IsStationary: adf.IsStationary,
		})
	}
	if kpss != nil {
		o.Stationarity = append(o.Stationarity, StationarityRow{
			Test:         "KPSS",
			Statistic:    kpss.Statistic,
			PValue:       kpss.PValue,
			Lags:         kpss.Lags,
			IsStationary: kpss.IsStationary,
		})
	}
	if pp != nil {
		o.Stationarity = append(o.Stationarity, StationarityRow{
			Test:         "PP",
			Statistic:    pp.Statistic,
			PValue:       pp.PValue,
			Lags:         pp.Lags,
			IsStationary: pp.IsStationary,
		})
	}
}

func f64(v float64) *float64 {
	return &v
}

// AddCandidate records a candidate's fit, residual diagnostics, evaluation
// result, and accuracy.
func (o *Output) AddCandidate(c *autoarima.Candidate, diag *Diagnostics, r *eval.Result, m *eval.Metrics, selected bool) {
	res := ModelResult{
		Name:      c.Name,
		Order:     c.Order(),
		Converged: c.Converged,
		RootsOK:   c.RootsOK,
		Selected:  selected,
	}
	if c.Err != nil {
		res.FitError = c.Err.Error()
	}
	if c.Converged {
		res.AICc = f64(c.AICc)
		res.BIC = f64(c.BIC)
		res.LogLik = f64(c.LogLik)
		res.Sigma2 = f64(c.Sigma2)
	}
	if diag != nil {
		if diag.LjungBox != nil {
			res.LjungBoxQ = f64(diag.LjungBox.Statistic)
			res.LjungBoxP = f64(diag.LjungBox.PValue)
		}
		if diag.BoxPierce != nil {
			res.BoxPierceQ = f64(diag.BoxPierce.Statistic)
			res.BoxPierceP = f64(diag.BoxPierce.PValue)
		}
		res.DurbinWatson = diag.DurbinWatson
	}
	if r != nil {
		res.Level = r.Level
		for _, row := range r.Rows {
			res.Forecast = append(res.Forecast, row.Mean)
			res.Lower = append(res.Lower, row.Lower)
			res.Upper = append(res.Upper, row.Upper)
		}
	}
	if m != nil {
		res.ME = f64(m.ME)
		res.RMSE = f64(m.RMSE)
		res.MAE = f64(m.MAE)
		// NaN percentage errors (zero actuals) are not representable in
		// JSON; omit them instead.
		if !math.IsNaN(m.MPE) {
			res.MPE = f64(m.MPE)
		}
		if !math.IsNaN(m.MAPE) {
			res.MAPE = f64(m.MAPE)
		}
	}
	o.Models = append(o.Models, res)
}

// SetCorrelograms records the ACF/PACF of the (possibly differenced)
// training series.
func (o *Output) SetCorrelograms(acf, pacf *stats.Correlogram) {
	if acf != nil {
		o.ACF = append([]float64(nil), acf.Values...)
	}
	if pacf != nil {
		o.PACF = append([]float64(nil), pacf.Values...)
	}
}

// WriteJSON exports the result set as indented JSON.
func (o *Output) WriteJSON(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// orNaN renders an absent metric as NaN for table output.
func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// WriteTables renders the result set as text tables.
func (o *Output) WriteTables(w io.Writer) {
	rule := strings.Repeat("=", 78)

	fmt.Fprintf(w, "%s\n%s  (%d observations: %d train, %d test)\n%s\n",
		rule, o.Name, o.NObs, len(o.TrainData), len(o.TestData), rule)

	if o.Lambda != nil {
		fmt.Fprintf(w, "\nBox-Cox lambda: %.2f\n", *o.Lambda)
	}

	if len(o.Stationarity) > 0 {
		fmt.Fprintf(w, "\nStationarity tests\n")
		fmt.Fprintf(w, "%-8s %12s %10s %6s %s\n", "Test", "Statistic", "p-value", "Lags", "Stationary")
		for _, row := range o.Stationarity {
			fmt.Fprintf(w, "%-8s %12.4f %10.4f %6d %v\n",
				row.Test, row.Statistic, row.PValue, row.Lags, row.IsStationary)
		}
	}

	fmt.Fprintf(w, "\nCandidate models\n")
	fmt.Fprintf(w, "%-24s %10s %10s %10s %8s %8s %s\n", "Model", "AICc", "BIC", "sigma^2", "LB p", "DW", "Status")
	for _, m := range o.Models {
		status := "ok"
		switch {
		case !m.Converged:
			status = "failed"
		case !m.RootsOK:
			status = "roots"
		case m.Selected:
			status = "selected"
		}
		if !m.Converged {
			fmt.Fprintf(w, "%-24s %10s %10s %10s %8s %8s %s\n", m.Name, "-", "-", "-", "-", "-", status)
			continue
		}
		fmt.Fprintf(w, "%-24s %10.2f %10.2f %10.4f %8.4f %8.4f %s\n",
			m.Name, orNaN(m.AICc), orNaN(m.BIC), orNaN(m.Sigma2), orNaN(m.LjungBoxP), orNaN(m.DurbinWatson), status)
	}

	fmt.Fprintf(w, "\nForecast accuracy (test set)\n")
	fmt.Fprintf(w, "%-24s %10s %10s %10s %10s %10s\n", "Model", "ME", "RMSE", "MAE", "MPE", "MAPE")
	for _, m := range o.Models {
		if !m.Converged || len(m.Forecast) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-24s %10.4f %10.4f %10.4f %10.4f %10.4f\n",
			m.Name, orNaN(m.ME), orNaN(m.RMSE), orNaN(m.MAE), orNaN(m.MPE), orNaN(m.MAPE))
	}
}
