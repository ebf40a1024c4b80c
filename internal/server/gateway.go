package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/iwvelando/taxsim/internal/apiclient"
	"github.com/iwvelando/taxsim/internal/formula"
	"github.com/iwvelando/taxsim/internal/session"
	"github.com/iwvelando/taxsim/pkg/constants"
	"github.com/iwvelando/taxsim/pkg/validation"
	"go.uber.org/zap"
)

func (h *handler) registerGateway(r *mux.Router) {
	// Session
	r.HandleFunc("/api/session/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/session/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/session/user", h.authorized(h.handleCurrentUser)).Methods(http.MethodGet)

	// Formulas
	r.HandleFunc("/api/formulas", h.authorized(h.handleListFormulas)).Methods(http.MethodGet)
	r.HandleFunc("/api/formulas", h.authorized(h.handleCreateFormula)).Methods(http.MethodPost)
	r.HandleFunc("/api/formulas/{id:[0-9]+}", h.authorized(h.handleGetFormula)).Methods(http.MethodGet)
	r.HandleFunc("/api/formulas/{id:[0-9]+}", h.authorized(h.handleDeleteFormula)).Methods(http.MethodDelete)
	r.HandleFunc("/api/formulas/{id:[0-9]+}/process", h.authorized(h.handleProcessFormula)).Methods(http.MethodGet)
	r.HandleFunc("/api/formulas/{id:[0-9]+}/csv", h.authorized(h.handleFormulaCSV)).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard", h.authorized(h.handleDashboard)).Methods(http.MethodGet)

	// Taxes and investments
	r.HandleFunc("/api/taxes", h.authorized(h.handleCreateTax)).Methods(http.MethodPost)
	r.HandleFunc("/api/taxes/{id:[0-9]+}", h.authorized(h.handleUpdateTax)).Methods(http.MethodPut)
	r.HandleFunc("/api/taxes/{id:[0-9]+}", h.authorized(h.handleDeleteTax)).Methods(http.MethodDelete)
	r.HandleFunc("/api/investments/{id:[0-9]+}", h.authorized(h.handleUpdateInvestment)).Methods(http.MethodPut)
}

type authorizedHandler func(w http.ResponseWriter, r *http.Request, token string)

// authorized requires a bearer token and rejects expired ones before any
// remote call is made.
func (h *handler) authorized(next authorizedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		switch session.Classify(token, h.now()) {
		case session.Anonymous:
			h.respondErrorWithOp(w, r, http.StatusUnauthorized, session.ErrNotAuthenticated.Error(), "server.authorized")
			return
		case session.Expired:
			h.respondErrorWithOp(w, r, http.StatusUnauthorized, session.ErrSessionExpired.Error(), "server.authorized")
			return
		}
		next(w, r, token)
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// respondAPIError maps a remote failure to a status: the remote status is
// propagated, local validation is a 400 and anything else is a 502.
func (h *handler) respondAPIError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		h.respondErrorWithOp(w, r, status, apiErr.Message, op)
	case errors.Is(err, apiclient.ErrInvalidRange):
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
	default:
		h.respondErrorWithOp(w, r, http.StatusBadGateway, err.Error(), op)
	}
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

// monthRange reads firstMonth and lastMonth, defaulting to the first year.
func monthRange(r *http.Request) (int, int, error) {
	first, last := constants.DefaultFirstMonth, constants.DefaultLastMonth
	query := r.URL.Query()
	if raw := query.Get("firstMonth"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("firstMonth: invalid integer %q", raw)
		}
		first = value
	}
	if raw := query.Get("lastMonth"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("lastMonth: invalid integer %q", raw)
		}
		last = value
	}
	if err := validation.ValidateMonthRange(first, last); err != nil {
		return 0, 0, err
	}
	return first, last, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     formula.Role `json:"role"`
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLogin"
	var req loginRequest
	if status, err := h.decodeBody(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "email and password are required", op)
		return
	}

	auth, err := h.api.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, auth)
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRegister"
	var req registerRequest
	if status, err := h.decodeBody(w, r, &req); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "name, email and password are required", op)
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role), op)
		return
	}

	auth, err := h.api.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, auth)
}

func (h *handler) handleCurrentUser(w http.ResponseWriter, r *http.Request, token string) {
	user, err := h.api.CurrentUser(r.Context(), token)
	if err != nil {
		h.respondAPIError(w, r, err, "server.handleCurrentUser")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *handler) handleListFormulas(w http.ResponseWriter, r *http.Request, token string) {
	formulas, err := h.api.ListFormulas(r.Context(), token)
	if err != nil {
		h.respondAPIError(w, r, err, "server.handleListFormulas")
		return
	}
	h.writeJSON(w, http.StatusOK, formulas)
}

func (h *handler) handleGetFormula(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleGetFormula"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	f, err := h.api.GetFormula(r.Context(), token, id)
	if err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

func (h *handler) handleCreateFormula(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleCreateFormula"
	var draft formula.Draft
	if status, err := h.decodeBody(w, r, &draft); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if err := draft.Validate(); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.CreateFormula(r.Context(), token, draft); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.logger.Info("formula created",
		zap.String("op", op),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("name", draft.Name),
	)
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *handler) handleDeleteFormula(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleDeleteFormula"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.DeleteFormula(r.Context(), token, id); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleProcessFormula(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleProcessFormula"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	first, last, err := monthRange(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "formula.process")
	defer span.End()
	projection, err := h.api.ProcessFormula(ctx, token, id, first, last)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, formula.ErrEmptyProjection) {
			h.respondErrorWithOp(w, r, http.StatusNotFound, err.Error(), op)
			return
		}
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, projection)
}

func (h *handler) handleFormulaCSV(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleFormulaCSV"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	first, last, err := monthRange(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	data, err := h.api.ExportCSV(r.Context(), token, id, first, last)
	if err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="formula-%d.csv"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write CSV response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleDashboard"
	first, last, err := monthRange(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "dashboard.load")
	defer span.End()
	result, err := h.dashboard.Load(ctx, token, first, last)
	if err != nil {
		span.RecordError(err)
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleCreateTax(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleCreateTax"
	var tax formula.Tax
	if status, err := h.decodeBody(w, r, &tax); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if tax.FormulaID <= 0 {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "formulaId is required", op)
		return
	}
	if err := tax.Validate(); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.CreateTax(r.Context(), token, tax.FormulaID, tax); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *handler) handleUpdateTax(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleUpdateTax"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	var tax formula.Tax
	if status, err := h.decodeBody(w, r, &tax); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if err := tax.Validate(); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.UpdateTax(r.Context(), token, id, tax); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handler) handleDeleteTax(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleDeleteTax"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.DeleteTax(r.Context(), token, id); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleUpdateInvestment(w http.ResponseWriter, r *http.Request, token string) {
	const op = "server.handleUpdateInvestment"
	id, err := pathID(r)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	var investment formula.Investment
	if status, err := h.decodeBody(w, r, &investment); err != nil {
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if err := investment.Validate(); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.api.UpdateInvestment(r.Context(), token, id, investment); err != nil {
		h.respondAPIError(w, r, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
