// Package web exposes the portfolio over a JSON HTTP API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/ledger"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type transactionService interface {
	Add(ctx context.Context, in ledger.AddInput) (domain.Transaction, error)
	Update(ctx context.Context, id string, in ledger.UpdateInput) (domain.Transaction, error)
	Delete(ctx context.Context, id string) error
	Aggregate(ctx context.Context) ([]domain.AggregatedAsset, error)
}

type historyService interface {
	Chart() ([]domain.ChartSnapshot, error)
	Comparison() ([]domain.ComparisonSnapshot, error)
	DailyProfit() ([]domain.DailyProfitSnapshot, error)
	ValueChange() (domain.ValueChangeReport, error)
	TodayProfit(aggregated []domain.AggregatedAsset) (domain.DailyProfitSnapshot, error)
}

type quoteCache interface {
	Board() domain.QuoteBoard
}

// Server serves the reporting and mutation API.
type Server struct {
	addr         string
	engine       *gin.Engine
	transactions transactionService
	history      historyService
	quotes       quoteCache
	logger       *zap.Logger
}

// NewServer wires the routes. addr is the listen address, e.g. ":8080".
func NewServer(addr string, transactions transactionService, history historyService, quotes quoteCache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		addr:         addr,
		engine:       engine,
		transactions: transactions,
		history:      history,
		quotes:       quotes,
		logger:       logger,
	}

	api := engine.Group("/api")
	api.GET("/assets", s.getAssets)
	api.GET("/prices", s.getPrices)
	api.GET("/chart-data", s.getChart)
	api.GET("/comparison-data", s.getComparison)
	api.GET("/value-analysis", s.getValueAnalysis)
	api.GET("/daily-profit", s.getDailyProfit)
	api.GET("/today-profit", s.getTodayProfit)
	api.POST("/transactions", s.postTransaction)
	api.PUT("/transactions/:id", s.putTransaction)
	api.DELETE("/transactions/:id", s.deleteTransaction)

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "http server shutdown")
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) getAssets(c *gin.Context) {
	aggregated, err := s.transactions.Aggregate(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, aggregated)
}

func (s *Server) getPrices(c *gin.Context) {
	board := s.quotes.Board()
	resp := gin.H{"categorized": board.Categories}
	if !board.LastUpdated.IsZero() {
		resp["last_updated"] = board.LastUpdated
	}
	if board.Advisory != "" {
		resp["api_error"] = board.Advisory
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getChart(c *gin.Context) {
	snapshots, err := s.history.Chart()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func (s *Server) getComparison(c *gin.Context) {
	snapshots, err := s.history.Comparison()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

// getValueAnalysis reports the day-over-day change. With fewer than two
// comparison points it degrades to the latest point alone, then to an
// empty object.
func (s *Server) getValueAnalysis(c *gin.Context) {
	report, err := s.history.ValueChange()
	if err == nil {
		c.JSON(http.StatusOK, report)
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.fail(c, err)
		return
	}

	snapshots, err := s.history.Comparison()
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(snapshots) > 0 {
		c.JSON(http.StatusOK, snapshots[len(snapshots)-1])
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) getDailyProfit(c *gin.Context) {
	snapshots, err := s.history.DailyProfit()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func (s *Server) getTodayProfit(c *gin.Context) {
	aggregated, err := s.transactions.Aggregate(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	snapshot, err := s.history.TodayProfit(aggregated)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type transactionRequest struct {
	Symbol       string          `json:"symbol"`
	Title        string          `json:"title"`
	Date         *time.Time      `json:"date"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Category     string          `json:"category"`
	Comment      string          `json:"comment"`
}

func (s *Server) postTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := s.transactions.Add(c.Request.Context(), ledger.AddInput{
		Symbol:       req.Symbol,
		Title:        req.Title,
		Date:         req.Date,
		Type:         domain.TxType(req.Type),
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Category:     req.Category,
		Comment:      req.Comment,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": tx})
}

type transactionPatch struct {
	Type         *string          `json:"type"`
	Quantity     *decimal.Decimal `json:"quantity"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit"`
	Category     *string          `json:"category"`
	Comment      *string          `json:"comment"`
	Date         *time.Time       `json:"date"`
}

func (s *Server) putTransaction(c *gin.Context) {
	var req transactionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := ledger.UpdateInput{
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Category:     req.Category,
		Comment:      req.Comment,
		Date:         req.Date,
	}
	if req.Type != nil {
		txType := domain.TxType(*req.Type)
		in.Type = &txType
	}

	tx, err := s.transactions.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": tx})
}

func (s *Server) deleteTransaction(c *gin.Context) {
	if err := s.transactions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail maps domain errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
