// Command unrate runs the unemployment-rate analysis pipeline: load a
// monthly series from CSV, test for stationarity, search for ARIMA orders,
// select the best model by AICc, check residuals, and evaluate forecasts
// against a held-out test set.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mbeckman/unrate/autoarima"
	"github.com/mbeckman/unrate/config"
	"github.com/mbeckman/unrate/eval"
	"github.com/mbeckman/unrate/report"
	"github.com/mbeckman/unrate/sarima"
	"github.com/mbeckman/unrate/stats"
	"github.com/mbeckman/unrate/timeseries"
	"github.com/mbeckman/unrate/transform"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	setupLogging(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(cfg *config.Config) error {
	// Stage 1: load and validate the monthly series.
	opts := timeseries.DefaultCSVOptions()
	opts.DateColumn = cfg.Data.DateColumn
	opts.ValueColumn = cfg.Data.ValueColumn
	opts.DateFormat = cfg.Data.DateFormat
	series, err := timeseries.LoadCSV(cfg.Data.Path, opts)
	if err != nil {
		return err
	}
	log.Info().Int("n", series.Len()).
		Time("start", series.Start()).Time("end", series.End()).
		Msg("loaded series")

	// Stage 2: optional Box-Cox variance stabilization.
	var lambda *float64
	working := series
	if cfg.Transform.BoxCox {
		lv := cfg.Transform.Fixed
		if cfg.AutoLambda() {
			lv, err = transform.GuerreroLambda(series, cfg.Model.Period)
			if err != nil {
				return err
			}
		}
		working, err = transform.BoxCox(series, lv)
		if err != nil {
			return err
		}
		lambda = &lv
		log.Info().Float64("lambda", lv).Msg("applied Box-Cox transform")
	}

	// Stage 3: train/test split, then stationarity analysis on the
	// training set only.
	train, test, err := eval.Split(working, cfg.Eval.TrainFraction)
	if err != nil {
		return err
	}
	origTest := series.Slice(train.Len(), series.Len())
	log.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("split series")

	adf, err := stats.ADF(train, 0)
	if err != nil {
		return err
	}
	kpss, err := stats.KPSS(train, "c", 0)
	if err != nil {
		return err
	}
	pp, err := stats.PhillipsPerron(train, 0)
	if err != nil {
		return err
	}
	log.Info().
		Float64("adf_p", adf.PValue).Bool("adf_stationary", adf.IsStationary).
		Float64("kpss_p", kpss.PValue).Bool("kpss_stationary", kpss.IsStationary).
		Float64("pp_p", pp.PValue).Bool("pp_stationary", pp.IsStationary).
		Msg("stationarity tests")

	if nd := stats.NDiffs(train, 2, "kpss"); nd != cfg.Model.D {
		log.Warn().Int("suggested", nd).Int("configured", cfg.Model.D).
			Msg("differencing order differs from KPSS suggestion")
	}
	if cfg.Model.Seasonal {
		if nsd := stats.NSDiffs(train, cfg.Model.Period, 1); nsd != cfg.Model.SD {
			log.Warn().Int("suggested", nsd).Int("configured", cfg.Model.SD).
				Msg("seasonal differencing order differs from strength suggestion")
		}
	}

	// Correlograms of the differenced training series guide order choice
	// and go into the export.
	diffed := train
	for i := 0; i < cfg.Model.D; i++ {
		diffed = diffed.Diff()
	}
	acf := stats.ACFWithConfidence(diffed, 24)
	pacf := stats.PACFWithConfidence(diffed, 24)
	log.Debug().
		Ints("acf", stats.SignificantLags(acf.Values, acf.ConfBounds)).
		Ints("pacf", stats.SignificantLags(pacf.Values, pacf.ConfBounds)).
		Msg("significant correlogram lags")

	// Stage 4: candidate generation. Fixed orders from the config plus the
	// configured search strategy, all fitted on the training set.
	var candidates []*autoarima.Candidate
	for _, f := range cfg.Model.Fixed {
		order := sarima.Order{
			P: f.P, D: f.D, Q: f.Q,
			SP: f.SP, SD: f.SD, SQ: f.SQ, M: cfg.Model.Period,
		}
		c := autoarima.FitFixed(train, order)
		if c.Err != nil {
			log.Warn().Err(c.Err).Str("model", c.Name).Msg("candidate failed to fit")
		}
		candidates = append(candidates, c)
	}

	searchCfg := &autoarima.Config{
		MaxP: cfg.Model.Search.MaxP, MaxQ: cfg.Model.Search.MaxQ,
		D: cfg.Model.D, SD: cfg.Model.SD,
		Seasonal: cfg.Model.Seasonal, Period: cfg.Model.Period,
		MaxSP: cfg.Model.Search.MaxSP, MaxSQ: cfg.Model.Search.MaxSQ,
	}
	var search *autoarima.SearchResult
	switch cfg.Model.Search.Strategy {
	case "exhaustive":
		search, err = autoarima.Exhaustive(train, searchCfg)
	default:
		search, err = autoarima.Stepwise(train, searchCfg)
	}
	if err != nil {
		log.Warn().Err(err).Msg("order search found no admissible model")
	} else {
		log.Info().Str("model", search.Best.Name).
			Int("evaluated", search.ModelsEvaluated).
			Float64("aicc", search.Best.AICc).
			Msg("order search complete")
		candidates = append(candidates, search.Best)
	}

	// Stage 5: model selection by AICc.
	best, err := autoarima.SelectBest(candidates)
	if err != nil {
		return err
	}
	log.Info().Str("model", best.Name).Float64("aicc", best.AICc).Msg("selected model")

	// Stage 6: residual diagnostics and test-set evaluation for every
	// converged candidate, then report.
	out := report.NewOutput(seriesName(series, cfg), train, test)
	out.Lambda = lambda
	out.AddStationarity(adf, kpss, pp)
	out.SetCorrelograms(acf, pacf)

	accuracy := eval.Report{}
	var bestResult *eval.Result
	for _, c := range candidates {
		if !c.Converged {
			out.AddCandidate(c, nil, nil, nil, false)
			continue
		}

		diag := &report.Diagnostics{}
		lb, err := stats.LjungBox(c.Residuals(), cfg.Eval.LjungBoxLags, c.Fitdf())
		if err != nil {
			log.Warn().Err(err).Str("model", c.Name).Msg("ljung-box failed")
		} else {
			diag.LjungBox = lb
			if lb.PValue < 0.05 {
				log.Warn().Str("model", c.Name).Float64("p", lb.PValue).
					Msg("residuals show remaining autocorrelation")
			}
		}
		if bp, err := stats.BoxPierce(c.Residuals(), cfg.Eval.LjungBoxLags, c.Fitdf()); err == nil {
			diag.BoxPierce = bp
		}
		if dw, err := stats.DurbinWatson(c.Residuals()); err == nil {
			diag.DurbinWatson = &dw
		}

		result, err := eval.Evaluate(c, test, cfg.Eval.Level)
		if err != nil {
			log.Warn().Err(err).Str("model", c.Name).Msg("evaluation failed")
			out.AddCandidate(c, diag, nil, nil, c == best)
			continue
		}
		if lambda != nil {
			if err := backTransform(result, origTest, *lambda); err != nil {
				return err
			}
		}
		metrics, err := eval.AccuracyOf(result)
		if err != nil {
			return err
		}
		log.Info().Str("model", c.Name).
			Float64("rmse", metrics.RMSE).Float64("mape", metrics.MAPE).
			Msg("test-set accuracy")

		accuracy.Add(c.Name, metrics)
		if c == best {
			bestResult = result
		}
		out.AddCandidate(c, diag, result, metrics, c == best)
	}
	if name := accuracy.BestRMSE(); name != "" && name != best.Name {
		log.Warn().Str("by_aicc", best.Name).Str("by_rmse", name).
			Msg("information criterion and test accuracy disagree")
	}

	out.WriteTables(os.Stdout)
	if cfg.Output.JSONPath != "" {
		if err := out.WriteJSON(cfg.Output.JSONPath); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Output.JSONPath).Msg("wrote JSON export")
	}
	if cfg.Output.CSVPath != "" && bestResult != nil {
		if err := writeForecastCSV(bestResult, cfg.Output.CSVPath); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Output.CSVPath).Str("model", best.Name).
			Msg("wrote forecast CSV")
	}
	return nil
}

// writeForecastCSV saves the selected model's test-horizon point forecasts
// as a monthly series.
func writeForecastCSV(r *eval.Result, path string) error {
	timestamps := make([]time.Time, len(r.Rows))
	means := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		timestamps[i] = row.Timestamp
		means[i] = row.Mean
	}
	forecast, err := timeseries.FromObservations(timestamps, means)
	if err != nil {
		return err
	}
	forecast.Name = "forecast"
	return timeseries.SaveCSV(forecast, path)
}

// backTransform maps a transformed-scale evaluation back to the original
// scale so accuracy is reported in the units of the input data.
func backTransform(r *eval.Result, origTest *timeseries.Series, lambda float64) error {
	if len(r.Rows) != origTest.Len() {
		return eval.ErrLengthMismatch
	}
	means := make([]float64, len(r.Rows))
	lowers := make([]float64, len(r.Rows))
	uppers := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		means[i] = row.Mean
		lowers[i] = row.Lower
		uppers[i] = row.Upper
	}
	means = transform.InvBoxCox(means, lambda)
	lowers = transform.InvBoxCox(lowers, lambda)
	uppers = transform.InvBoxCox(uppers, lambda)
	for i := range r.Rows {
		r.Rows[i].Mean = means[i]
		r.Rows[i].Lower = lowers[i]
		r.Rows[i].Upper = uppers[i]
		r.Rows[i].Actual = origTest.Values[i]
	}
	return nil
}

func seriesName(series *timeseries.Series, cfg *config.Config) string {
	if series.Name != "" {
		return series.Name
	}
	return cfg.Data.Path
}
