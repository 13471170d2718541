package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/observability"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// Handler exposes the order workflow over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler builds a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics, validator: validator.New()}
}

// MountRoutes registers order routes. Single orders are addressed by
// their human-readable number.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/search", h.search)
	r.Post("/combine", h.combine)
	r.Post("/import", h.importOrders)
	r.Get("/{number}", h.get)
	r.Patch("/{number}", h.update)
	r.Delete("/{number}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.service.List(r.Context(), *actor, ListInput{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	order, err := h.service.Get(r.Context(), *actor, chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.service.Search(r.Context(), *actor, r.URL.Query().Get("q"), ListInput{Page: page, Limit: limit})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	order, err := h.service.Create(r.Context(), *actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.CountOrderEvent("create")
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	order, err := h.service.Update(r.Context(), *actor, chi.URLParam(r, "number"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.CountOrderEvent("update")
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), *actor, chi.URLParam(r, "number")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type combineRequest struct {
	OrderIDs []int64 `json:"order_ids" validate:"required,min=1"`
}

func (h *Handler) combine(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	var req combineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid payload", err.Error())
		return
	}
	order, err := h.service.Combine(r.Context(), *actor, req.OrderIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.CountOrderEvent("combine")
	httpx.JSON(w, http.StatusCreated, order)
}

const maxImportBytes = 5 << 20

func (h *Handler) importOrders(w http.ResponseWriter, r *http.Request) {
	actor := actors.FromContext(r.Context())
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid upload", err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid upload", "missing file field")
		return
	}
	defer file.Close()

	rows, err := ReadImportRows(file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Import(r.Context(), *actor, rows)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.CountOrderEvent("import")
	httpx.JSON(w, http.StatusCreated, map[string]any{"orders": created})
}
