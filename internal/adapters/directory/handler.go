// Package directory exposes the places Store over a JSON HTTP API.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"placesdir/internal/listing"
	"placesdir/internal/report"
	"placesdir/pkg/domain"
)

const (
	apiPrefix      = "/api/v1"
	maxSiteBody    = 1 << 20
	maxImportBody  = 32 << 20
	exportFilename = "places_data_export.json"
)

// Directory is the subset of the Store the handler drives.
type Directory interface {
	Regions(ctx context.Context) ([]string, error)
	Region(ctx context.Context, name string) (domain.Region, bool, error)
	AddSite(ctx context.Context, region string, raw domain.RawSite) (domain.Site, error)
	UpdateSite(ctx context.Context, region string, number int, patch domain.RawSite) (domain.Site, error)
	DeleteSite(ctx context.Context, region string, number int) (bool, error)
	ExportJSON(ctx context.Context) (string, error)
	ImportJSON(ctx context.Context, text string) (domain.Dataset, error)
	Reset(ctx context.Context) (domain.Dataset, error)
}

// Handler provides HTTP access to the directory.
type Handler struct {
	Directory Directory
	// Limiter throttles mutating requests when set.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// NewHandler constructs a directory HTTP handler.
func NewHandler(d Directory, limiter *rate.Limiter, logger *slog.Logger) *Handler {
	return &Handler{Directory: d, Limiter: limiter, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Directory == nil {
		writeError(w, http.StatusInternalServerError, "directory not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.EscapedPath(), "/")
	switch {
	case path == "/healthz":
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case path == apiPrefix+"/regions":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleRegions(w, r)
	case strings.HasPrefix(path, apiPrefix+"/regions/"):
		h.handleRegionPath(w, r, strings.TrimPrefix(path, apiPrefix+"/regions/"))
	case path == apiPrefix+"/export":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleExport(w, r)
	case path == apiPrefix+"/import":
		if !allow(w, r, http.MethodPost) || !h.throttle(w) {
			return
		}
		h.handleImport(w, r)
	case path == apiPrefix+"/reset":
		if !allow(w, r, http.MethodPost) || !h.throttle(w) {
			return
		}
		h.handleReset(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleRegionPath(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	region, err := url.PathUnescape(segments[0])
	if err != nil || region == "" {
		writeError(w, http.StatusBadRequest, "invalid region")
		return
	}
	switch {
	case len(segments) == 1:
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleRegion(w, r, region)
	case len(segments) == 2 && segments[1] == "report":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleReport(w, r, region)
	case len(segments) == 2 && segments[1] == "sites":
		if !allow(w, r, http.MethodPost) || !h.throttle(w) {
			return
		}
		h.handleAddSite(w, r, region)
	case len(segments) == 3 && segments[1] == "sites":
		number, err := strconv.Atoi(segments[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid site number")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGetSite(w, r, region, number)
		case http.MethodPut:
			if h.throttle(w) {
				h.handleUpdateSite(w, r, region, number)
			}
		case http.MethodDelete:
			if h.throttle(w) {
				h.handleDeleteSite(w, r, region, number)
			}
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "directory endpoint not found")
	}
}

func (h *Handler) handleRegions(w http.ResponseWriter, r *http.Request) {
	names, err := h.Directory.Regions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": names})
}

type regionResponse struct {
	Region     string        `json:"region"`
	Sites      []domain.Site `json:"sites"`
	Total      int           `json:"total"`
	NextNumber int           `json:"next_number"`
}

func (h *Handler) handleRegion(w http.ResponseWriter, r *http.Request, name string) {
	mode, err := listing.ParseMode(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	region, ok, err := h.Directory.Region(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, &domain.RegionNotFoundError{Region: name})
		return
	}
	sites := listing.View(region.Sites, r.URL.Query().Get("q"), mode)
	for i := range sites {
		sites[i] = domain.NormalizeSite(sites[i])
	}
	writeJSON(w, http.StatusOK, regionResponse{
		Region:     region.Region,
		Sites:      sites,
		Total:      len(region.Sites),
		NextNumber: listing.NextNumber(region.Sites),
	})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, name string) {
	mode, err := listing.ParseMode(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	region, ok, err := h.Directory.Region(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, &domain.RegionNotFoundError{Region: name})
		return
	}
	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf).Write(region, report.Options{Query: r.URL.Query().Get("q"), Sort: mode}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleGetSite(w http.ResponseWriter, r *http.Request, name string, number int) {
	region, ok, err := h.Directory.Region(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, &domain.RegionNotFoundError{Region: name})
		return
	}
	idx := region.FindSite(number)
	if idx < 0 {
		h.fail(w, r, &domain.SiteNotFoundError{Region: name, Number: number})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"site": domain.NormalizeSite(region.Sites[idx])})
}

func (h *Handler) handleAddSite(w http.ResponseWriter, r *http.Request, region string) {
	raw, ok := h.decodeSite(w, r)
	if !ok {
		return
	}
	site, err := h.Directory.AddSite(r.Context(), region, raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"site": site})
}

func (h *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request, region string, number int) {
	patch, ok := h.decodeSite(w, r)
	if !ok {
		return
	}
	site, err := h.Directory.UpdateSite(r.Context(), region, number, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"site": site})
}

func (h *Handler) handleDeleteSite(w http.ResponseWriter, r *http.Request, region string, number int) {
	deleted, err := h.Directory.DeleteSite(r.Context(), region, number)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := h.Directory.ExportJSON(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}
	d, err := h.Directory.ImportJSON(r.Context(), string(body))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	d, err := h.Directory.Reset(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) decodeSite(w http.ResponseWriter, r *http.Request) (domain.RawSite, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSiteBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "site body too large")
		return nil, false
	}
	raw, err := domain.ParseRawSite(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return raw, true
}

func (h *Handler) throttle(w http.ResponseWriter) bool {
	if h.Limiter == nil || h.Limiter.Allow() {
		return true
	}
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "directory request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor maps a Store error to an HTTP status code.
func StatusFor(err error) int {
	var (
		regionErr     *domain.RegionNotFoundError
		siteErr       *domain.SiteNotFoundError
		duplicateErr  *domain.DuplicateNumberError
		parseErr      *domain.ParseError
		validationErr *domain.ValidationError
		loadErr       *domain.LoadError
	)
	switch {
	case errors.As(err, &regionErr), errors.As(err, &siteErr):
		return http.StatusNotFound
	case errors.As(err, &duplicateErr):
		return http.StatusConflict
	case errors.As(err, &parseErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
