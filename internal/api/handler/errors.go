package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"donor-crm/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
)

func newProblem(c *gin.Context, status int, typ, detail string) *problems.Problem {
	return problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(typ).
		WithDetail(detail)
}

// withExtension adds a member to a problem document
func withExtension(p *problems.Problem, key string, value any) any {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return p
	}
	doc[key] = value
	return doc
}

func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, newProblem(c, http.StatusBadRequest, "validation_error", detail))
}

// handleServiceError maps service errors onto problem documents.
func handleServiceError(c *gin.Context, err error) {
	var enrollErr *domain.EnrollmentError
	switch {
	case errors.As(err, &enrollErr):
		p := newProblem(c, http.StatusBadRequest, "invalid_contacts", "some contact ids are invalid")
		c.AbortWithStatusJSON(http.StatusBadRequest, withExtension(p, "invalidContactIds", enrollErr.InvalidContactIDs))

	case errors.Is(err, domain.ErrValidation):
		badRequest(c, err.Error())

	case errors.Is(err, domain.ErrUnsupportedFormat):
		c.AbortWithStatusJSON(http.StatusBadRequest, newProblem(c, http.StatusBadRequest, "unsupported_format", err.Error()))

	case errors.Is(err, domain.ErrJourneyNotActive):
		c.AbortWithStatusJSON(http.StatusConflict, newProblem(c, http.StatusConflict, "journey_not_active", "journey is not active"))

	case errors.Is(err, domain.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, newProblem(c, http.StatusForbidden, "forbidden", "resource belongs to another organization"))

	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, newProblem(c, http.StatusNotFound, "not_found", err.Error()))

	default:
		// details stay in the log
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, newProblem(c, http.StatusInternalServerError, "internal_error", "internal error"))
	}
}
