// Package api provides the HTTP REST API server for hodlsight.
//
// It exposes the treasury chart data, coin market and halving passthroughs,
// the chat relay, and a WebSocket stream of halving countdown ticks.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hodlsight/hodlsight/internal/config"
	"github.com/hodlsight/hodlsight/internal/extract"
	"github.com/hodlsight/hodlsight/internal/llm"
	"github.com/hodlsight/hodlsight/internal/providers/blockchain"
	"github.com/hodlsight/hodlsight/internal/providers/coingecko"
	"github.com/hodlsight/hodlsight/internal/providers/edgar"
	"github.com/hodlsight/hodlsight/internal/providers/stooq"
	"github.com/hodlsight/hodlsight/internal/treasury"
	"github.com/hodlsight/hodlsight/pkg/models"
)

// treasurySource produces the reconstructed treasury report for a symbol.
type treasurySource interface {
	Report(ctx context.Context, symbol string, since time.Time) (*models.TreasuryMeta, error)
}

// priceSource produces a daily close series for a symbol.
type priceSource interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error)
}

// filingSource answers freshness checks against the EDGAR Atom feed.
type filingSource interface {
	ResolveCIK(ctx context.Context, symbol string) (string, error)
	LatestFilingsFeed(ctx context.Context, cik string, limit int) ([]models.FilingFeedItem, error)
}

// marketSource produces a coin market snapshot.
type marketSource interface {
	CoinMarket(ctx context.Context, coinID string) (*models.CoinMarket, error)
}

// chainSource produces the halving countdown.
type chainSource interface {
	HalvingCountdown(ctx context.Context) (*models.HalvingCountdown, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	treasury treasurySource
	filings  filingSource
	prices   priceSource
	markets  marketSource
	chain    chainSource
	chat     llm.Client // nil when no API key is configured
	wsHub    *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	ed := edgar.New(
		edgar.WithUserAgent(cfg.Edgar.UserAgent),
		edgar.WithMaxHistoryPages(cfg.Edgar.MaxHistoryPages),
	)

	ex := extract.New(extract.Options{
		Tolerance:      cfg.Extraction.Tolerance,
		MinAvgUSD:      cfg.Extraction.MinAvgUSD,
		MaxAvgUSD:      cfg.Extraction.MaxAvgUSD,
		MaxHoldingsBTC: cfg.Extraction.MaxHoldingsBTC,
		WindowBefore:   cfg.Extraction.WindowBefore,
		WindowAfter:    cfg.Extraction.WindowAfter,
	})

	svc := treasury.NewService(ed, ex, treasury.Policy{
		RecentWindowDays: cfg.Edgar.RecentWindowDays,
		MaxPerMonth:      cfg.Edgar.MaxPerMonth,
		CandidateBudget:  cfg.Edgar.CandidateBudget,
		Workers:          cfg.Edgar.Workers,
	})

	srv := &Server{
		cfg:      cfg,
		treasury: svc,
		filings:  ed,
		prices:   stooq.New(),
		markets:  coingecko.New(),
		chain:    blockchain.New(),
		wsHub:    NewWSHub(),
	}

	if cfg.LLM.OpenAIKey != "" {
		chat, err := llm.NewOpenAIClient(cfg.LLM.OpenAIKey, llm.WithOpenAIModel(cfg.LLM.Model))
		if err != nil {
			return nil, err
		}
		srv.chat = chat
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub and the halving tick feed
	go s.wsHub.Run()
	go s.runHalvingFeed()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Treasury chart data
		r.Get("/treasury/{symbol}", s.handleTreasury)
		r.Get("/treasury/{symbol}/filings", s.handleFilings)

		// Market passthroughs
		r.Get("/markets/{coin}", s.handleMarkets)
		r.Get("/halving", s.handleHalving)

		// Chat relay
		r.Post("/chat", s.handleChat)
	})

	// WebSocket halving countdown stream
	r.Get("/ws/halving", s.handleWebSocket)

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ChatRequest is the body for POST /api/v1/chat.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatMessage represents a single chat message in history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResponse is the body returned by POST /api/v1/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": "dev",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleTreasury serves the chart payload: the coin price series over the
// requested range and the reconstructed average-cost step series aligned to
// it. A price failure is fatal for the request; a treasury failure degrades
// to price-only with a warning.
func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	from := time.Now().UTC().AddDate(-s.historyYears(), 0, 0)
	if fp := r.URL.Query().Get("from"); fp != "" {
		t, err := time.Parse("2006-01-02", fp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; use YYYY-MM-DD")
			return
		}
		from = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	price, err := s.prices.DailyCloses(ctx, s.cfg.Price.Symbol, from, time.Time{})
	if err != nil {
		writeError(w, http.StatusBadGateway, "price series unavailable: "+err.Error())
		return
	}

	meta, terr := s.treasury.Report(ctx, symbol, from)
	overlay := treasury.BuildOverlay(symbol, price, meta, terr)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    overlay,
	})
}

// handleFilings serves the company's latest filings from the EDGAR Atom
// feed. The feed updates ahead of the submissions index, so clients use it
// to decide whether the cached chart payload is stale.
func (s *Server) handleFilings(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := 10
	if lp := r.URL.Query().Get("limit"); lp != "" {
		n, err := strconv.Atoi(lp)
		if err != nil || n < 1 || n > 40 {
			writeError(w, http.StatusBadRequest, "invalid limit; use 1-40")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	cik, err := s.filings.ResolveCIK(ctx, symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	items, err := s.filings.LatestFilingsFeed(ctx, cik, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    items,
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	coin := chi.URLParam(r, "coin")
	if coin == "" {
		writeError(w, http.StatusBadRequest, "coin is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	market, err := s.markets.CoinMarket(ctx, coin)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    market,
	})
}

func (s *Server) handleHalving(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	countdown, err := s.chain.HalvingCountdown(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    countdown,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	messages := []llm.Message{
		llm.SystemMessage("You are a helpful assistant on a site about corporate bitcoin treasuries. Answer concisely."),
	}
	for _, m := range req.History {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.UserMessage(req.Message))

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	resp, err := s.chat.Chat(ctx, messages, &llm.ChatOptions{
		Model:       s.cfg.LLM.Model,
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ChatResponse{Reply: resp.Content, Model: resp.Model},
	})
}

func (s *Server) historyYears() int {
	if s.cfg.Edgar.HistoryYears > 0 {
		return s.cfg.Edgar.HistoryYears
	}
	return 5
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
