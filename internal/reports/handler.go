package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// Handler exposes reporting over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/merged/monthly", h.monthly)
	r.Get("/merged/yearly", h.yearly)
	r.Get("/export/monthly", h.exportMonthly)
	r.Get("/export/yearly", h.exportYearly)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Monthly(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) yearly(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Yearly(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// exports are a sales-facing feature in this product.
func exportAllowed(r *http.Request) bool {
	actor := actors.FromContext(r.Context())
	return actor != nil && actor.InDepartment(actors.DepartmentSales)
}

func (h *Handler) exportMonthly(w http.ResponseWriter, r *http.Request) {
	if !exportAllowed(r) {
		httpx.RespondError(w, fmt.Errorf("%w: exports are limited to sales", httpx.ErrForbidden))
		return
	}
	groups, err := h.service.Monthly(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groups = selectMonths(groups, periodParams(r, "months"))
	if len(groups) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: no merged orders to export", httpx.ErrNotFound))
		return
	}
	writeAttachment(w, "orders-monthly.csv")
	if err := WriteMonthlyCSV(w, groups); err != nil {
		h.logger.Error("monthly export failed", "err", err)
	}
}

func (h *Handler) exportYearly(w http.ResponseWriter, r *http.Request) {
	if !exportAllowed(r) {
		httpx.RespondError(w, fmt.Errorf("%w: exports are limited to sales", httpx.ErrForbidden))
		return
	}
	groups, err := h.service.Yearly(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groups = selectYears(groups, periodParams(r, "years"))
	if len(groups) == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: no merged orders to export", httpx.ErrNotFound))
		return
	}
	writeAttachment(w, "orders-yearly.csv")
	if err := WriteYearlyCSV(w, groups); err != nil {
		h.logger.Error("yearly export failed", "err", err)
	}
}

// periodParams reads the requested export periods from the query string,
// accepting both repeated parameters and one comma-separated value.
func periodParams(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func writeAttachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
}
