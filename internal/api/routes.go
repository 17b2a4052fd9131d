package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/api/handlers"
	"github.com/avidalm/cryptoanalyzer-go/internal/cache"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// SetupRoutes wires every endpoint onto the router.
func SetupRoutes(router *gin.Engine, market handlers.MarketData, priceCache *cache.PriceCache, cfg *config.Config, log *logrus.Logger) {
	router.Use(handlers.RequestID())
	router.Use(handlers.CORS())

	router.GET("/health", handlers.HealthCheck(priceCache, Version))

	analysisHandler := handlers.NewAnalysisHandler(market, cfg.Analysis, log)
	correlationsHandler := handlers.NewCorrelationsHandler(market, cfg.Analysis, log)
	portfolioHandler := handlers.NewPortfolioHandler(market, cfg.Analysis, log)
	assetsHandler := handlers.NewAssetsHandler(market, cfg.Analysis, log)
	chartsHandler := handlers.NewChartsHandler(market, cfg.Analysis, log)

	v1 := router.Group("/api/v1")
	{
		assets := v1.Group("/assets")
		{
			assets.GET("/supported", assetsHandler.GetSupported)
			assets.GET("/price/:symbol", assetsHandler.GetPrice)
			assets.GET("/history/:symbol", assetsHandler.GetHistory)
			assets.GET("/summary/:symbol", assetsHandler.GetSummary)
		}

		analysis := v1.Group("/analysis")
		{
			analysis.GET("/performance/:symbol", analysisHandler.GetPerformance)
			analysis.POST("/performance", analysisHandler.ComparePerformance)
			analysis.GET("/volatility/:symbol", analysisHandler.GetVolatility)
			analysis.POST("/volatility", analysisHandler.CompareVolatility)
			analysis.GET("/risk/:symbol", analysisHandler.GetRisk)
			analysis.GET("/technical/:symbol", analysisHandler.GetTechnical)
			analysis.POST("/technical", analysisHandler.CompareTechnical)
			analysis.GET("/trend/:symbol", analysisHandler.GetTrend)
			analysis.GET("/trends", analysisHandler.GetTrends)
			analysis.GET("/sentiment/:symbol", analysisHandler.GetSentiment)
		}

		correlations := v1.Group("/correlations")
		{
			correlations.POST("/matrix", correlationsHandler.GetMatrix)
			correlations.GET("/heatmap", correlationsHandler.GetHeatmap)
			correlations.GET("/pairwise/:symbol1/:symbol2", correlationsHandler.GetPairwise)
			correlations.GET("/rolling/:symbol1/:symbol2", correlationsHandler.GetRolling)
			correlations.GET("/stability/:symbol1/:symbol2", correlationsHandler.GetStability)
		}

		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/performance/:symbol", analysisHandler.GetPerformance)
			portfolio.POST("/analyze", portfolioHandler.Analyze)
			portfolio.POST("/optimize", portfolioHandler.Optimize)
			portfolio.POST("/rebalance", portfolioHandler.Rebalance)
		}

		chartRoutes := v1.Group("/charts")
		{
			chartRoutes.GET("/price/:symbol", chartsHandler.GetPriceChart)
			chartRoutes.GET("/indicators/:symbol", chartsHandler.GetIndicatorChart)
			chartRoutes.GET("/compare", chartsHandler.GetComparisonChart)
			chartRoutes.GET("/correlation/:symbol1/:symbol2", chartsHandler.GetCorrelationChart)
		}
	}
}
