package note

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	g.POST("/notes", h.CreateNote)
	g.GET("/notes", h.ListNotes)
	g.GET("/notes/:id", h.GetNote)
	g.GET("/notes/:id/form", h.GetForm)
	g.PUT("/notes/:id/content", h.SaveContent)
	g.POST("/notes/:id/validate", h.ValidateNote)
	g.POST("/notes/:id/sign", h.SignNote)
}

// httpError maps note lifecycle errors onto HTTP status codes. A write
// against a signed note is a conflict, not a client validation failure.
func httpError(err error) error {
	var ve *template.ValidationError
	if errors.As(err, &ve) {
		payload := map[string]interface{}{"error": ve.Error()}
		if len(ve.Fields) > 0 {
			payload["fields"] = ve.Fields
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, payload)
	}
	switch {
	case errors.Is(err, ErrNoteNotFound), errors.Is(err, template.ErrTemplateNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrImmutableDocument):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSaveInFlight):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func practitionerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.PractitionerIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "no practitioner identity")
	}
	return id, nil
}

type createNoteRequest struct {
	TemplateID uuid.UUID `json:"template_id"`
	PatientID  uuid.UUID `json:"patient_id"`
}

func (h *Handler) CreateNote(c echo.Context) error {
	var req createNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TemplateID == uuid.Nil || req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "template_id and patient_id are required")
	}
	pid, err := practitionerID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.CreateNote(c.Request().Context(), req.TemplateID, req.PatientID, pid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// ListNotes lists by patient_id or practitioner_id; exactly one is required.
func (h *Handler) ListNotes(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if raw := c.QueryParam("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(ctx, patientID, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	if raw := c.QueryParam("practitioner_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner_id")
		}
		items, total, err := h.svc.ListByPractitioner(ctx, pid, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	return echo.NewHTTPError(http.StatusBadRequest, "patient_id or practitioner_id query parameter is required")
}

func (h *Handler) GetForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	views, err := h.svc.RenderForm(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}

// SaveContent replaces the draft's value tree. With ?autosave=true the save
// is recorded as an autosave and stamps last_autosave_at.
func (h *Handler) SaveContent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pid, err := practitionerID(c)
	if err != nil {
		return err
	}
	var tree template.ValueTree
	if err := c.Bind(&tree); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	isAutosave := c.QueryParam("autosave") == "true"
	n, err := h.svc.SaveContent(c.Request().Context(), id, pid, tree, isAutosave)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// ValidateNote runs the advisory validation pass: the response always has
// status 200, with the per-field messages in the body. Completeness is only
// enforced at sign time.
func (h *Handler) ValidateNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var tree template.ValueTree
	if err := c.Bind(&tree); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fieldErrs, err := h.svc.ValidateDraft(c.Request().Context(), id, tree)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":  len(fieldErrs) == 0,
		"fields": fieldErrs,
	})
}

func (h *Handler) SignNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pid, err := practitionerID(c)
	if err != nil {
		return err
	}
	var tree template.ValueTree
	if err := c.Bind(&tree); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.Sign(c.Request().Context(), id, pid, tree)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}
