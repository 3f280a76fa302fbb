package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/api/dto"
	"github.com/hugh/go-contacts/internal/api/middleware"
	"github.com/hugh/go-contacts/internal/contacts"
)

type ContactHandler struct {
	contactService *contacts.Service
	logger         *slog.Logger
}

func NewContactHandler(contactService *contacts.Service, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, logger: logger}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := contacts.ListFilter{
		Page:    parseIntParam(r, "page", 1),
		PerPage: parseIntParam(r, "limit", contacts.DefaultPerPage),
	}
	filter.Normalize()

	if raw := r.URL.Query().Get("favorite"); raw != "" {
		favorite, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "favorite must be true or false")
			return
		}
		filter.Favorite = &favorite
	}

	list, total, err := h.contactService.List(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       dto.NewContactDTOs(list),
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: filter.TotalPages(total),
	})
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	contact, err := h.contactService.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactDTO(contact))
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := middleware.Body[dto.CreateContactRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.contactService.Create(r.Context(), middleware.GetUserID(r.Context()), contacts.CreateInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewContactDTO(contact))
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	req, ok := middleware.Body[dto.UpdateContactRequest](r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.contactService.Update(r.Context(), middleware.GetUserID(r.Context()), id, contacts.UpdateInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactDTO(contact))
}

func (h *ContactHandler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	req, ok := middleware.Body[dto.FavoriteRequest](r.Context())
	if !ok || req.Favorite == nil {
		writeError(w, http.StatusBadRequest, dto.ErrMissingFavorite.Error())
		return
	}

	contact, err := h.contactService.UpdateFavorite(r.Context(), middleware.GetUserID(r.Context()), id, *req.Favorite)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactDTO(contact))
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	if _, err := h.contactService.Remove(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "contact deleted"})
}

func (h *ContactHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contacts.ErrContactNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, contacts.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, dto.ErrMissingFields.Error())
	default:
		internalError(w, r, h.logger, err)
	}
}

func contactID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}
