package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// Risk tolerance levels accepted by OptimizeAllocation.
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

// rebalanceBandPercent is the dead band, as a share of total portfolio
// value, below which allocation drift does not produce a trade.
const rebalanceBandPercent = 1.0

// Trade actions emitted by Rebalance.
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// PortfolioValueSeries reconstructs the historical value of a set of
// positions from per-symbol price histories. Each position contributes its
// price weighted by its share of the portfolio's total initial cost, so the
// series reflects the allocation at purchase time rather than quantities.
// Histories are aligned to the shortest common length; positions without
// history are skipped but still count toward the cost base.
func PortfolioValueSeries(positions []models.Position, historical map[string][]float64) []float64 {
	var totalCost float64
	for _, pos := range positions {
		totalCost += pos.CostBasis().InexactFloat64()
	}
	if totalCost <= 0 {
		return []float64{}
	}

	held := make(map[string][]float64)
	weights := make(map[string]float64)
	for _, pos := range positions {
		series, ok := historical[pos.Symbol]
		if !ok || len(series) == 0 {
			continue
		}
		held[pos.Symbol] = series
		weights[pos.Symbol] += pos.CostBasis().InexactFloat64() / totalCost
	}

	aligned := AlignSeries(held)
	if len(aligned) == 0 {
		return []float64{}
	}

	var length int
	for _, series := range aligned {
		length = len(series)
		break
	}

	values := make([]float64, length)
	for symbol, series := range aligned {
		weight := weights[symbol]
		for i, price := range series {
			values[i] += weight * price
		}
	}
	return values
}

// PositionMetrics is the valuation of a single holding.
type PositionMetrics struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Value        decimal.Decimal `json:"value"`
	PnL          decimal.Decimal `json:"unrealized_pnl"`
	PnLPercent   float64         `json:"unrealized_pnl_percent"`
	Weight       float64         `json:"weight"`
}

// PortfolioMetricsResult aggregates valuation and risk statistics for a
// whole portfolio.
type PortfolioMetricsResult struct {
	TotalValue       decimal.Decimal   `json:"total_value"`
	TotalCost        decimal.Decimal   `json:"total_cost"`
	UnrealizedPnL    decimal.Decimal   `json:"unrealized_pnl"`
	PnLPercent       float64           `json:"unrealized_pnl_percent"`
	TotalReturn      float64           `json:"total_return"`
	AnnualizedReturn float64           `json:"annualized_return"`
	Volatility       float64           `json:"volatility"`
	SharpeRatio      float64           `json:"sharpe_ratio"`
	MaxDrawdown      float64           `json:"max_drawdown"`
	VaR95            float64           `json:"var_95"`
	Beta             float64           `json:"beta"`
	Alpha            float64           `json:"alpha"`
	Concentration    float64           `json:"concentration"`
	Positions        []PositionMetrics `json:"positions"`
	RiskProfile      RiskProfile       `json:"risk_profile"`
}

// PortfolioMetrics values each position at current prices (falling back to
// average cost when a price is missing) and derives performance statistics
// from the reconstructed value series. Beta and alpha are computed only when
// a benchmark of matching history is supplied.
func PortfolioMetrics(positions []models.Position, currentPrices map[string]float64, historical map[string][]float64, benchmark []float64) PortfolioMetricsResult {
	result := PortfolioMetricsResult{Beta: 1}

	for _, pos := range positions {
		price := pos.AvgCost
		if p, ok := currentPrices[pos.Symbol]; ok && p > 0 {
			price = decimal.NewFromFloat(p)
		}
		value := pos.Quantity.Mul(price)
		cost := pos.CostBasis()

		pm := PositionMetrics{
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			AvgCost:      pos.AvgCost,
			CurrentPrice: price,
			Value:        value,
			PnL:          value.Sub(cost),
		}
		if !cost.IsZero() {
			pm.PnLPercent = pm.PnL.Div(cost).InexactFloat64() * 100
		}
		result.Positions = append(result.Positions, pm)
		result.TotalValue = result.TotalValue.Add(value)
		result.TotalCost = result.TotalCost.Add(cost)
	}

	result.UnrealizedPnL = result.TotalValue.Sub(result.TotalCost)
	if !result.TotalCost.IsZero() {
		result.PnLPercent = result.UnrealizedPnL.Div(result.TotalCost).InexactFloat64() * 100
	}

	totalValue := result.TotalValue.InexactFloat64()
	for i := range result.Positions {
		if totalValue > 0 {
			result.Positions[i].Weight = result.Positions[i].Value.InexactFloat64() / totalValue * 100
		}
		w := result.Positions[i].Weight / 100
		result.Concentration += w * w
	}
	sort.Slice(result.Positions, func(i, j int) bool {
		return result.Positions[i].Symbol < result.Positions[j].Symbol
	})

	values := PortfolioValueSeries(positions, historical)
	if len(values) < 2 {
		result.RiskProfile = AssessRiskProfile(nil, nil)
		return result
	}

	returns := Returns(values)
	result.TotalReturn = TotalReturn(values)
	result.AnnualizedReturn = AnnualizedReturn(returns, TradingDaysPerYear) * 100
	result.Volatility = Volatility(returns)
	result.SharpeRatio = SharpeRatio(returns, DefaultRiskFreeRate)
	result.MaxDrawdown = MaxDrawdown(values)
	result.VaR95 = ValueAtRisk(returns, 0.95)
	result.RiskProfile = AssessRiskProfile(returns, values)

	if len(benchmark) >= 2 {
		benchReturns := Returns(benchmark)
		if len(benchReturns) == len(returns) {
			result.Beta = Beta(returns, benchReturns)
			result.Alpha = Alpha(returns, benchReturns, DefaultRiskFreeRate)
		}
	}
	return result
}

// AssetAllocation is one asset's share of an optimized portfolio.
type AssetAllocation struct {
	Symbol         string  `json:"symbol"`
	Weight         float64 `json:"weight"`
	Value          float64 `json:"value"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
}

// OptimizationResult is the allocation suggested for a risk tolerance.
type OptimizationResult struct {
	RiskTolerance      string            `json:"risk_tolerance"`
	Allocations        []AssetAllocation `json:"allocations"`
	ExpectedReturn     float64           `json:"expected_return"`
	ExpectedVolatility float64           `json:"expected_volatility"`
	SharpeRatio        float64           `json:"sharpe_ratio"`
}

// OptimizeAllocation suggests portfolio weights from historical prices.
// Conservative weights by inverse volatility, aggressive by expected return,
// moderate blends an equal-weight base with a 20% return-to-risk tilt.
// Portfolio volatility uses the full covariance of aligned returns.
func OptimizeAllocation(historical map[string][]float64, riskTolerance string, totalValue float64) (OptimizationResult, error) {
	result := OptimizationResult{RiskTolerance: riskTolerance}

	aligned := AlignSeries(historical)
	if len(aligned) == 0 {
		return result, fmt.Errorf("no price history supplied")
	}

	symbols := make([]string, 0, len(aligned))
	for symbol := range aligned {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	n := len(symbols)
	returns := make([][]float64, n)
	expected := make([]float64, n)
	vols := make([]float64, n)
	for i, symbol := range symbols {
		returns[i] = Returns(aligned[symbol])
		expected[i] = mean(returns[i]) * TradingDaysPerYear
		vols[i] = sampleStdDev(returns[i]) * sqrtTradingDays
	}

	weights := make([]float64, n)
	switch riskTolerance {
	case RiskConservative:
		for i, v := range vols {
			if v > 0 {
				weights[i] = 1 / v
			}
		}
	case RiskAggressive:
		for i, e := range expected {
			if e > 0 {
				weights[i] = e
			}
		}
	case RiskModerate:
		ratios := make([]float64, n)
		var ratioSum float64
		for i := range symbols {
			if vols[i] > 0 {
				ratios[i] = expected[i] / vols[i]
			} else {
				ratios[i] = 1
			}
			if ratios[i] > 0 {
				ratioSum += ratios[i]
			}
		}
		for i := range weights {
			weights[i] = 1 / float64(n)
			if ratioSum > 0 && ratios[i] > 0 {
				weights[i] += 0.2 * ratios[i] / ratioSum
			}
		}
	default:
		return result, fmt.Errorf("unknown risk tolerance %q", riskTolerance)
	}

	var weightSum float64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
		weightSum = 1
	}
	for i := range weights {
		weights[i] /= weightSum
	}

	// Annualized covariance over the aligned return series.
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		for j := range cov[i] {
			cov[i][j] = sampleCovariance(returns[i], returns[j]) * TradingDaysPerYear
		}
	}
	var portfolioVariance float64
	for i := range weights {
		for j := range weights {
			portfolioVariance += weights[i] * weights[j] * cov[i][j]
		}
	}
	if portfolioVariance < 0 {
		portfolioVariance = 0
	}

	for i, symbol := range symbols {
		result.Allocations = append(result.Allocations, AssetAllocation{
			Symbol:         symbol,
			Weight:         weights[i] * 100,
			Value:          weights[i] * totalValue,
			ExpectedReturn: expected[i] * 100,
			Volatility:     vols[i] * 100,
		})
		result.ExpectedReturn += weights[i] * expected[i] * 100
	}
	result.ExpectedVolatility = math.Sqrt(portfolioVariance) * 100
	if result.ExpectedVolatility > 0 {
		result.SharpeRatio = (result.ExpectedReturn/100 - DefaultRiskFreeRate) / (result.ExpectedVolatility / 100)
	}
	return result, nil
}

// RebalanceTrade is a single buy or sell needed to reach a target
// allocation.
type RebalanceTrade struct {
	Symbol            string          `json:"symbol"`
	Action            string          `json:"action"`
	Value             decimal.Decimal `json:"value"`
	Quantity          decimal.Decimal `json:"quantity"`
	CurrentAllocation float64         `json:"current_allocation"`
	TargetAllocation  float64         `json:"target_allocation"`
}

// RebalanceResult lists the trades needed to move a portfolio to its
// targets, with turnover summary.
type RebalanceResult struct {
	TotalValue      decimal.Decimal  `json:"total_value"`
	Trades          []RebalanceTrade `json:"trades"`
	NumberOfTrades  int              `json:"number_of_trades"`
	TotalTradeValue decimal.Decimal  `json:"total_trade_value"`
	TurnoverPercent float64          `json:"turnover_percent"`
}

// Rebalance computes the trades that bring current holdings to the target
// percentage allocations. Targets must sum to 100 within a one point
// tolerance. Drift smaller than one percent of total value is left alone.
func Rebalance(positions []models.Position, currentPrices map[string]float64, targets map[string]float64) (RebalanceResult, error) {
	var result RebalanceResult

	var targetSum float64
	for _, pct := range targets {
		if pct < 0 {
			return result, fmt.Errorf("negative target allocation")
		}
		targetSum += pct
	}
	if math.Abs(targetSum-100) > 1 {
		return result, fmt.Errorf("target allocations sum to %.2f%%, expected 100%%", targetSum)
	}

	currentValues := make(map[string]decimal.Decimal)
	priceOf := make(map[string]decimal.Decimal)
	for _, pos := range positions {
		price := pos.AvgCost
		if p, ok := currentPrices[pos.Symbol]; ok && p > 0 {
			price = decimal.NewFromFloat(p)
		}
		priceOf[pos.Symbol] = price
		currentValues[pos.Symbol] = currentValues[pos.Symbol].Add(pos.Quantity.Mul(price))
		result.TotalValue = result.TotalValue.Add(pos.Quantity.Mul(price))
	}
	if result.TotalValue.IsZero() {
		return result, fmt.Errorf("portfolio has no value")
	}

	symbols := make(map[string]struct{})
	for s := range currentValues {
		symbols[s] = struct{}{}
	}
	for s := range targets {
		symbols[s] = struct{}{}
	}
	ordered := make([]string, 0, len(symbols))
	for s := range symbols {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)

	totalValue := result.TotalValue
	band := totalValue.Mul(decimal.NewFromFloat(rebalanceBandPercent / 100))

	for _, symbol := range ordered {
		current := currentValues[symbol]
		target := totalValue.Mul(decimal.NewFromFloat(targets[symbol] / 100))
		diff := target.Sub(current)
		if diff.Abs().LessThanOrEqual(band) {
			continue
		}

		trade := RebalanceTrade{
			Symbol:            symbol,
			Value:             diff.Abs(),
			CurrentAllocation: current.Div(totalValue).InexactFloat64() * 100,
			TargetAllocation:  targets[symbol],
		}
		if diff.IsPositive() {
			trade.Action = TradeBuy
		} else {
			trade.Action = TradeSell
		}
		if price, ok := priceOf[symbol]; ok && !price.IsZero() {
			trade.Quantity = diff.Abs().Div(price)
		} else if p, ok := currentPrices[symbol]; ok && p > 0 {
			trade.Quantity = diff.Abs().Div(decimal.NewFromFloat(p))
		}

		result.Trades = append(result.Trades, trade)
		result.TotalTradeValue = result.TotalTradeValue.Add(diff.Abs())
	}

	result.NumberOfTrades = len(result.Trades)
	if !totalValue.IsZero() {
		result.TurnoverPercent = result.TotalTradeValue.Div(totalValue).InexactFloat64() * 100
	}
	return result, nil
}
