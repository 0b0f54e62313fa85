package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
)

// TutorialHandler exposes tutorial CRUD over HTTP.
type TutorialHandler struct {
	svc    tutorial.Service
	logger *slog.Logger
}

// NewTutorialHandler constructs the handler.
func NewTutorialHandler(svc tutorial.Service, logger *slog.Logger) *TutorialHandler {
	return &TutorialHandler{svc: svc, logger: logger.With("component", "http.tutorials")}
}

// RegisterTutorialRoutes mounts the tutorial module under /api/tutorials.
func RegisterTutorialRoutes(r gin.IRouter, h *TutorialHandler) {
	group := r.Group("/api/tutorials")
	{
		group.POST("", h.Create)
		group.GET("", h.FindAll)
		group.GET("/published", h.FindAllPublished)
		group.GET("/:id", h.FindOne)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		group.DELETE("", h.DeleteAll)
	}
}

// Create handles POST /api/tutorials.
func (h *TutorialHandler) Create(c *gin.Context) {
	body, err := objectBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	input, fieldErr := createInputFromBody(body)
	if fieldErr != nil {
		abortWithError(c, fieldErr)
		return
	}
	created, svcErr := h.svc.Create(c.Request.Context(), input)
	if svcErr != nil {
		abortWithError(c, fromServiceError(svcErr))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// FindAll handles GET /api/tutorials?title=.
func (h *TutorialHandler) FindAll(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("title"))
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.JSON(http.StatusOK, items)
}

// FindAllPublished handles GET /api/tutorials/published.
func (h *TutorialHandler) FindAllPublished(c *gin.Context) {
	items, err := h.svc.ListPublished(c.Request.Context())
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.JSON(http.StatusOK, items)
}

// FindOne handles GET /api/tutorials/:id.
func (h *TutorialHandler) FindOne(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.JSON(http.StatusOK, item)
}

// Update handles PUT /api/tutorials/:id.
func (h *TutorialHandler) Update(c *gin.Context) {
	body, err := objectBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	input, fieldErr := updateInputFromBody(body)
	if fieldErr != nil {
		abortWithError(c, fieldErr)
		return
	}
	item, svcErr := h.svc.Update(c.Request.Context(), c.Param("id"), input)
	if svcErr != nil {
		abortWithError(c, fromServiceError(svcErr))
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /api/tutorials/:id.
func (h *TutorialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tutorial was deleted successfully!"})
}

// DeleteAll handles DELETE /api/tutorials.
func (h *TutorialHandler) DeleteAll(c *gin.Context) {
	n, err := h.svc.DeleteAll(c.Request.Context())
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d Tutorials were deleted successfully!", n)})
}

func objectBody(c *gin.Context) (map[string]any, *HTTPError) {
	switch body := parsedBody(c).(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return body, nil
	default:
		return nil, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must be an object", nil)
	}
}

func createInputFromBody(body map[string]any) (tutorial.CreateInput, *HTTPError) {
	var input tutorial.CreateInput
	title, err := stringField(body, "title")
	if err != nil {
		return input, err
	}
	description, err := stringField(body, "description")
	if err != nil {
		return input, err
	}
	published, err := boolField(body, "published")
	if err != nil {
		return input, err
	}
	if title != nil {
		input.Title = *title
	}
	if description != nil {
		input.Description = *description
	}
	if published != nil {
		input.Published = *published
	}
	return input, nil
}

func updateInputFromBody(body map[string]any) (tutorial.UpdateInput, *HTTPError) {
	var (
		input tutorial.UpdateInput
		err   *HTTPError
	)
	if input.Title, err = stringField(body, "title"); err != nil {
		return input, err
	}
	if input.Description, err = stringField(body, "description"); err != nil {
		return input, err
	}
	if input.Published, err = boolField(body, "published"); err != nil {
		return input, err
	}
	return input, nil
}

func stringField(body map[string]any, name string) (*string, *HTTPError) {
	raw, ok := body[name]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, invalidField(name, "a string")
	}
	return &s, nil
}

func boolField(body map[string]any, name string) (*bool, *HTTPError) {
	raw, ok := body[name]
	if !ok || raw == nil {
		return nil, nil
	}
	var b bool
	switch v := raw.(type) {
	case bool:
		b = v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on":
			b = true
		case "false", "0", "off", "":
			b = false
		default:
			return nil, invalidField(name, "a boolean")
		}
	default:
		return nil, invalidField(name, "a boolean")
	}
	return &b, nil
}

func invalidField(name, kind string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, "invalid_request", fmt.Sprintf("%s must be %s", name, kind), nil)
}
