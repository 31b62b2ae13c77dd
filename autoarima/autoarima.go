// Package autoarima implements automatic ARIMA order search and model
// selection by corrected AIC.
//
// Two search strategies are provided. Stepwise starts from a small fixed set
// of orders and greedily moves each of p, q (and seasonal P, Q) up or down by
// one, accepting moves that strictly lower AICc and stopping at a local
// optimum. Exhaustive evaluates every order combination within the
// configured bounds and returns the best AICc among those evaluated. Both
// reject candidates whose characteristic roots violate the stationarity or
// invertibility constraints, and both fall back to non-seasonal search when
// the series is too short for the requested seasonal period.
package autoarima

import (
	"errors"
	"fmt"
	"math"

	"github.com/mbeckman/unrate/arima"
	"github.com/mbeckman/unrate/sarima"
	"github.com/mbeckman/unrate/timeseries"
)

// ErrNoConvergedModel reports that every candidate model failed to converge,
// leaving nothing to select.
var ErrNoConvergedModel = errors.New("no candidate model converged")

// Config holds the search policy: differencing orders (an explicit,
// human-reviewed decision, never inferred here), order bounds, and the
// seasonal period.
type Config struct {
	MaxP int // Maximum AR order (default 5)
	MaxQ int // Maximum MA order (default 5)

	D  int // Non-seasonal differencing order, applied as given
	SD int // Seasonal differencing order, applied as given

	Seasonal bool // Whether to search seasonal orders
	Period   int  // Seasonal period (12 for monthly data)
	MaxSP    int  // Maximum seasonal AR order (default 2)
	MaxSQ    int  // Maximum seasonal MA order (default 2)
}

// DefaultConfig returns the default search bounds: non-seasonal orders 0-5,
// seasonal orders 0-2, first differencing, no seasonal part.
func DefaultConfig() *Config {
	return &Config{
		MaxP:  5,
		MaxQ:  5,
		D:     1,
		MaxSP: 2,
		MaxSQ: 2,
	}
}

// seasonalActive reports whether seasonal terms can be searched for the
// given series: the request must be seasonal and the series long enough to
// cover two full periods.
func (c *Config) seasonalActive(series *timeseries.Series) bool {
	return c.Seasonal && c.Period > 1 && series.Len() >= 2*c.Period
}

// Candidate is one fitted model in the selection pool. Exactly one of ARIMA
// and SARIMA is set. A candidate that failed to fit carries Err and
// Converged=false; it stays in the pool so the report can show the failure,
// but SelectBest never picks it.
type Candidate struct {
	Name   string
	ARIMA  *arima.Model
	SARIMA *sarima.Model

	AICc      float64
	BIC       float64
	LogLik    float64
	Sigma2    float64
	NumParams int
	Converged bool
	RootsOK   bool
	Err       error
}

// FitFixed fits a single candidate with explicit orders. A zero seasonal
// part (or period) selects a non-seasonal ARIMA fit. Fit failures are
// recorded on the candidate, not returned: a non-converged candidate is
// excluded from selection rather than aborting the pipeline.
func FitFixed(series *timeseries.Series, order sarima.Order) *Candidate {
	if order.M <= 1 || (order.SP == 0 && order.SD == 0 && order.SQ == 0) {
		return fitARIMA(series, arima.Order{P: order.P, D: order.D, Q: order.Q})
	}
	return fitSARIMA(series, order)
}

func fitARIMA(series *timeseries.Series, order arima.Order) *Candidate {
	c := &Candidate{
		Name:      fmt.Sprintf("ARIMA%s", order),
		AICc:      math.Inf(1),
		NumParams: order.NumParams(),
	}

	model := arima.New(order.P, order.D, order.Q)
	if err := model.Fit(series); err != nil {
		c.Err = err
		return c
	}

	c.ARIMA = model
	c.AICc = model.AICc
	c.BIC = model.BIC
	c.LogLik = model.LogLik
	c.Sigma2 = model.Variance
	c.Converged = true
	c.RootsOK = model.StationarityOK() && model.InvertibilityOK()
	return c
}

func fitSARIMA(series *timeseries.Series, order sarima.Order) *Candidate {
	c := &Candidate{
		Name:      fmt.Sprintf("SARIMA%s", order),
		AICc:      math.Inf(1),
		NumParams: order.NumParams(),
	}

	model := sarima.New(order.P, order.D, order.Q, order.SP, order.SD, order.SQ, order.M)
	if err := model.Fit(series); err != nil {
		c.Err = err
		return c
	}

	c.SARIMA = model
	c.AICc = model.AICc
	c.BIC = model.BIC
	c.LogLik = model.LogLik
	c.Sigma2 = model.Variance
	c.Converged = true
	c.RootsOK = model.StationarityOK() && model.InvertibilityOK()
	return c
}

// usable reports whether a candidate may enter a search's running best:
// converged with admissible roots.
func (c *Candidate) usable() bool {
	return c.Converged && c.RootsOK
}

// Order returns the candidate's order as a display string.
func (c *Candidate) Order() string {
	switch {
	case c.ARIMA != nil:
		return c.ARIMA.Order.String()
	case c.SARIMA != nil:
		return c.SARIMA.Order.String()
	default:
		return c.Name
	}
}

// Forecast produces recursive multi-step forecasts from the underlying
// model.
func (c *Candidate) Forecast(steps int, level float64) (*arima.Forecast, error) {
	switch {
	case c.ARIMA != nil:
		return c.ARIMA.Forecast(steps, level)
	case c.SARIMA != nil:
		return c.SARIMA.Forecast(steps, level)
	default:
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNoConvergedModel)
	}
}

// Residuals returns the underlying model's residual sequence.
func (c *Candidate) Residuals() []float64 {
	switch {
	case c.ARIMA != nil:
		return c.ARIMA.Residuals()
	case c.SARIMA != nil:
		return c.SARIMA.Residuals()
	default:
		return nil
	}
}

// Fitdf returns the degrees-of-freedom adjustment for residual portmanteau
// tests: the number of AR and MA parameters estimated.
func (c *Candidate) Fitdf() int {
	switch {
	case c.ARIMA != nil:
		return c.ARIMA.Order.P + c.ARIMA.Order.Q
	case c.SARIMA != nil:
		o := c.SARIMA.Order
		return o.P + o.Q + o.SP + o.SQ
	default:
		return 0
	}
}

// totalOrder is the parsimony measure used for AICc ties: the sum of all
// AR/MA orders.
func (c *Candidate) totalOrder() int {
	switch {
	case c.ARIMA != nil:
		return c.ARIMA.Order.P + c.ARIMA.Order.Q
	case c.SARIMA != nil:
		o := c.SARIMA.Order
		return o.P + o.Q + o.SP + o.SQ
	default:
		return math.MaxInt
	}
}

// SearchResult holds the winner of an order search.
type SearchResult struct {
	Best            *Candidate
	ModelsEvaluated int
}

// Stepwise performs a greedy stepwise order search. Returns
// ErrNoConvergedModel when no admissible candidate converges.
func Stepwise(series *timeseries.Series, cfg *Config) (*SearchResult, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	seasonal := cfg.seasonalActive(series)

	type spec struct{ p, q, sp, sq int }
	start := []spec{
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
		{1, 1, 1, 1},
		{2, 2, 1, 1},
	}

	inBounds := func(s spec) bool {
		if s.p < 0 || s.p > cfg.MaxP || s.q < 0 || s.q > cfg.MaxQ {
			return false
		}
		if !seasonal {
			return s.sp == 0 && s.sq == 0
		}
		return s.sp >= 0 && s.sp <= cfg.MaxSP && s.sq >= 0 && s.sq <= cfg.MaxSQ
	}

	fit := func(s spec) *Candidate {
		if seasonal {
			return fitSARIMA(series, sarima.Order{
				P: s.p, D: cfg.D, Q: s.q,
				SP: s.sp, SD: cfg.SD, SQ: s.sq, M: cfg.Period,
			})
		}
		return fitARIMA(series, arima.Order{P: s.p, D: cfg.D, Q: s.q})
	}

	var best *Candidate
	var bestSpec spec
	evaluated := 0
	tried := map[spec]bool{}

	consider := func(s spec) bool {
		if !inBounds(s) || tried[s] {
			return false
		}
		tried[s] = true
		if !seasonal {
			s.sp, s.sq = 0, 0
		}
		c := fit(s)
		evaluated++
		if !c.usable() {
			return false
		}
		if best == nil || c.AICc < best.AICc {
			best = c
			bestSpec = s
			return true
		}
		return false
	}

	for _, s := range start {
		if !seasonal {
			s.sp, s.sq = 0, 0
		}
		consider(s)
	}

	if best != nil {
		improved := true
		for improved {
			improved = false
			neighbors := []spec{
				{bestSpec.p + 1, bestSpec.q, bestSpec.sp, bestSpec.sq},
				{bestSpec.p - 1, bestSpec.q, bestSpec.sp, bestSpec.sq},
				{bestSpec.p, bestSpec.q + 1, bestSpec.sp, bestSpec.sq},
				{bestSpec.p, bestSpec.q - 1, bestSpec.sp, bestSpec.sq},
			}
			if seasonal {
				neighbors = append(neighbors,
					spec{bestSpec.p, bestSpec.q, bestSpec.sp + 1, bestSpec.sq},
					spec{bestSpec.p, bestSpec.q, bestSpec.sp - 1, bestSpec.sq},
					spec{bestSpec.p, bestSpec.q, bestSpec.sp, bestSpec.sq + 1},
					spec{bestSpec.p, bestSpec.q, bestSpec.sp, bestSpec.sq - 1},
				)
			}
			for _, s := range neighbors {
				if consider(s) {
					improved = true
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("stepwise search (%d models): %w", evaluated, ErrNoConvergedModel)
	}
	return &SearchResult{Best: best, ModelsEvaluated: evaluated}, nil
}

// Exhaustive evaluates every order combination within the configured bounds
// and returns the best AICc among the admissible candidates. This is a
// bounded grid, not a global optimum over all ARIMA space.
func Exhaustive(series *timeseries.Series, cfg *Config) (*SearchResult, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	seasonal := cfg.seasonalActive(series)
	maxSP, maxSQ := 0, 0
	if seasonal {
		maxSP, maxSQ = cfg.MaxSP, cfg.MaxSQ
	}

	var best *Candidate
	evaluated := 0

	for p := 0; p <= cfg.MaxP; p++ {
		for q := 0; q <= cfg.MaxQ; q++ {
			for sp := 0; sp <= maxSP; sp++ {
				for sq := 0; sq <= maxSQ; sq++ {
					var c *Candidate
					if seasonal {
						c = fitSARIMA(series, sarima.Order{
							P: p, D: cfg.D, Q: q,
							SP: sp, SD: cfg.SD, SQ: sq, M: cfg.Period,
						})
					} else {
						c = fitARIMA(series, arima.Order{P: p, D: cfg.D, Q: q})
					}
					evaluated++
					if !c.usable() {
						continue
					}
					if best == nil || c.AICc < best.AICc {
						best = c
					}
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("exhaustive search (%d models): %w", evaluated, ErrNoConvergedModel)
	}
	return &SearchResult{Best: best, ModelsEvaluated: evaluated}, nil
}

// SelectBest orders candidates by ascending AICc, breaking ties in favor of
// fewer total AR/MA orders, and returns the minimizer. Candidates that
// failed to converge are ignored; if none converged, ErrNoConvergedModel is
// returned.
func SelectBest(candidates []*Candidate) (*Candidate, error) {
	var best *Candidate
	for _, c := range candidates {
		if c == nil || !c.Converged {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		if c.AICc < best.AICc ||
			(c.AICc == best.AICc && c.totalOrder() < best.totalOrder()) {
			best = c
		}
	}
	if best == nil {
		return nil, ErrNoConvergedModel
	}
	return best, nil
}
