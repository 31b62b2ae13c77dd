// Package unrate analyzes the monthly US unemployment rate with ARIMA models.
//
// The repository implements a single linear analysis pipeline: load a monthly
// rate series from CSV, stabilize its variance with a Box-Cox transform,
// diagnose stationarity (ADF, KPSS), fit a set of candidate ARIMA and
// seasonal ARIMA models (fixed order, stepwise search, exhaustive search),
// select the candidate with the lowest AICc, validate residuals with the
// Ljung-Box test, and compare train/test forecasts against held-out actuals.
//
// # Packages
//
//   - timeseries: monthly series type, validation, CSV loading
//   - transform: Box-Cox power transform and Guerrero lambda estimation
//   - stats: stationarity tests, correlograms, portmanteau tests
//   - arima: non-seasonal ARIMA models
//   - sarima: seasonal ARIMA models
//   - autoarima: stepwise and exhaustive order search, model selection
//   - eval: train/test splitting and forecast accuracy metrics
//   - report: tabular and JSON presentation of results
//   - config: YAML run configuration
//
// The pipeline binary lives in cmd/unrate and is driven entirely by a YAML
// configuration file.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package unrate
