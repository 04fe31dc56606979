package farming

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/model"
)

// WalletHeader carries the caller's wallet identity. Upstream infrastructure
// (gateway signature verification) is expected to have authenticated it.
const WalletHeader = "X-Wallet-Address"

// --- Request/Response types ---

// StartFarmingRequest is the JSON body for POST /api/v1/periods.
type StartFarmingRequest struct {
	StartTime       int64           `json:"start_time"` // unix seconds
	DurationSeconds int64           `json:"duration_seconds"`
	RewardAmount    decimal.Decimal `json:"reward_amount"` // minimal units
}

// RegisterAffiliateRequest is the JSON body for POST /api/v1/affiliates.
type RegisterAffiliateRequest struct {
	Wallet string `json:"wallet"`
}

// SetPercentRequest is the JSON body for PUT /api/v1/affiliates/percent.
type SetPercentRequest struct {
	Percent int64 `json:"percent"` // scale: 1000 = 100%
}

// SetOperatorRequest is the JSON body for POST /api/v1/operators.
type SetOperatorRequest struct {
	Wallet  string `json:"wallet"`
	Enabled bool   `json:"enabled"`
}

// ClaimResponse is returned from a successful claim.
type ClaimResponse struct {
	Wallet string          `json:"wallet"`
	FarmID int64           `json:"farm_id"`
	Amount decimal.Decimal `json:"amount"`
}

// RewardResponse is returned from the reward query.
type RewardResponse struct {
	Wallet string          `json:"wallet"`
	FarmID int64           `json:"farm_id"`
	Amount decimal.Decimal `json:"amount"`
}

// AffiliateResponse is returned from the affiliate percent query.
type AffiliateResponse struct {
	Wallet  string `json:"wallet"`
	Percent int64  `json:"percent"`
}

// --- HTTP Handlers ---

// StartFarmingHandler handles POST /api/v1/periods (operator-only).
func (s *Service) StartFarmingHandler(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(WalletHeader)
	if caller == "" {
		writeError(w, "missing "+WalletHeader+" header", http.StatusUnauthorized)
		return
	}

	var req StartFarmingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	period, err := s.StartFarming(r.Context(), caller,
		time.Unix(req.StartTime, 0).UTC(),
		time.Duration(req.DurationSeconds)*time.Second,
		req.RewardAmount,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(period)
}

// ListPeriodsHandler handles GET /api/v1/periods.
func (s *Service) ListPeriodsHandler(w http.ResponseWriter, r *http.Request) {
	periods, err := s.ListFarmPeriods(r.Context())
	if err != nil {
		writeError(w, "failed to list periods", http.StatusInternalServerError)
		return
	}
	if periods == nil {
		periods = []model.FarmPeriod{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(periods)
}

// GetPeriodHandler handles GET /api/v1/periods/{farmID}.
func (s *Service) GetPeriodHandler(w http.ResponseWriter, r *http.Request) {
	farmID, err := strconv.ParseInt(chi.URLParam(r, "farmID"), 10, 64)
	if err != nil {
		writeError(w, "invalid farm id", http.StatusBadRequest)
		return
	}

	period, err := s.FarmPeriod(r.Context(), farmID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(period)
}

// CurrentPeriodHandler handles GET /api/v1/periods/current?timestamp=N.
// Without a timestamp parameter, the server's current time is used.
func (s *Service) CurrentPeriodHandler(w http.ResponseWriter, r *http.Request) {
	ts := time.Now().UTC()
	if raw := r.URL.Query().Get("timestamp"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, "invalid timestamp", http.StatusBadRequest)
			return
		}
		ts = time.Unix(secs, 0).UTC()
	}

	period, err := s.CurrentFarmPeriod(r.Context(), ts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(period)
}

// ListContributionsHandler handles GET /api/v1/periods/{farmID}/contributions.
func (s *Service) ListContributionsHandler(w http.ResponseWriter, r *http.Request) {
	farmID, err := strconv.ParseInt(chi.URLParam(r, "farmID"), 10, 64)
	if err != nil {
		writeError(w, "invalid farm id", http.StatusBadRequest)
		return
	}

	contributions, err := s.ListContributions(r.Context(), farmID)
	if err != nil {
		writeError(w, "failed to list contributions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contributions)
}

// RegisterAffiliateHandler handles POST /api/v1/affiliates (operator-only).
func (s *Service) RegisterAffiliateHandler(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(WalletHeader)
	if caller == "" {
		writeError(w, "missing "+WalletHeader+" header", http.StatusUnauthorized)
		return
	}

	var req RegisterAffiliateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Wallet == "" {
		writeError(w, "wallet is required", http.StatusBadRequest)
		return
	}

	if err := s.RegisterAffiliate(r.Context(), caller, req.Wallet); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AffiliateResponse{Wallet: req.Wallet})
}

// SetPercentHandler handles PUT /api/v1/affiliates/percent (self only).
func (s *Service) SetPercentHandler(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(WalletHeader)
	if caller == "" {
		writeError(w, "missing "+WalletHeader+" header", http.StatusUnauthorized)
		return
	}

	var req SetPercentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.SetAffiliatePercent(r.Context(), caller, req.Percent); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AffiliateResponse{Wallet: caller, Percent: req.Percent})
}

// GetAffiliateHandler handles GET /api/v1/affiliates/{wallet}.
func (s *Service) GetAffiliateHandler(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")

	percent, err := s.AffiliatePercent(r.Context(), wallet)
	if err != nil {
		writeError(w, "failed to look up affiliate", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AffiliateResponse{Wallet: wallet, Percent: percent})
}

// SetOperatorHandler handles POST /api/v1/operators (operator-only).
func (s *Service) SetOperatorHandler(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(WalletHeader)
	if caller == "" {
		writeError(w, "missing "+WalletHeader+" header", http.StatusUnauthorized)
		return
	}

	var req SetOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Wallet == "" {
		writeError(w, "wallet is required", http.StatusBadRequest)
		return
	}

	if err := s.SetOperator(caller, req.Wallet, req.Enabled); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterBetHandler handles POST /api/v1/bets/{betID}/register.
// Permissionless: keepers may register bets on behalf of bettors.
func (s *Service) RegisterBetHandler(w http.ResponseWriter, r *http.Request) {
	betID, err := strconv.ParseInt(chi.URLParam(r, "betID"), 10, 64)
	if err != nil {
		writeError(w, "invalid bet id", http.StatusBadRequest)
		return
	}

	contrib, err := s.RegisterBet(r.Context(), betID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contrib)
}

// ClaimHandler handles POST /api/v1/periods/{farmID}/claim (self only).
func (s *Service) ClaimHandler(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(WalletHeader)
	if caller == "" {
		writeError(w, "missing "+WalletHeader+" header", http.StatusUnauthorized)
		return
	}

	farmID, err := strconv.ParseInt(chi.URLParam(r, "farmID"), 10, 64)
	if err != nil {
		writeError(w, "invalid farm id", http.StatusBadRequest)
		return
	}

	amount, err := s.ClaimReward(r.Context(), caller, farmID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ClaimResponse{Wallet: caller, FarmID: farmID, Amount: amount})
}

// GetRewardHandler handles GET /api/v1/rewards/{wallet}/{farmID}.
func (s *Service) GetRewardHandler(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	farmID, err := strconv.ParseInt(chi.URLParam(r, "farmID"), 10, 64)
	if err != nil {
		writeError(w, "invalid farm id", http.StatusBadRequest)
		return
	}

	amount, err := s.RewardByWallet(r.Context(), wallet, farmID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RewardResponse{Wallet: wallet, FarmID: farmID, Amount: amount})
}

// Routes mounts all farming endpoints on the given router. operatorAuth,
// when non-nil, wraps the operator-restricted entry points; the wallet-level
// operator grant is enforced by the service regardless.
func (s *Service) Routes(r chi.Router, operatorAuth func(http.Handler) http.Handler) {
	// Public reads and the permissionless keeper entry point.
	r.Get("/periods", s.ListPeriodsHandler)
	r.Get("/periods/current", s.CurrentPeriodHandler)
	r.Get("/periods/{farmID}", s.GetPeriodHandler)
	r.Get("/periods/{farmID}/contributions", s.ListContributionsHandler)
	r.Get("/affiliates/{wallet}", s.GetAffiliateHandler)
	r.Get("/rewards/{wallet}/{farmID}", s.GetRewardHandler)
	r.Post("/bets/{betID}/register", s.RegisterBetHandler)

	// Wallet-authenticated self-service.
	r.Put("/affiliates/percent", s.SetPercentHandler)
	r.Post("/periods/{farmID}/claim", s.ClaimHandler)

	// Operator-restricted.
	r.Group(func(r chi.Router) {
		if operatorAuth != nil {
			r.Use(operatorAuth)
		}
		r.Post("/periods", s.StartFarmingHandler)
		r.Post("/affiliates", s.RegisterAffiliateHandler)
		r.Post("/operators", s.SetOperatorHandler)
	})
}

// writeDomainError maps the engine's sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrPercentOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, ErrFundingFailed):
		status = http.StatusPaymentRequired
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrNoActivePeriod):
		status = http.StatusNotFound
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrBetNotSettled),
		errors.Is(err, ErrPeriodClosed), errors.Is(err, ErrPeriodNotEnded),
		errors.Is(err, ErrNothingToClaim):
		status = http.StatusConflict
	}
	writeError(w, err.Error(), status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
