// Package api exposes the entity repositories and the relationship manager over HTTP.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/relationship"
	"media-contacts/backend/pkg/logger"
)

// Paths maps each entity kind to its collection path under /api
var Paths = map[entity.Kind]string{
	entity.KindCompany:    "companies",
	entity.KindJournalist: "journalists",
	entity.KindMedia:      "media",
	entity.KindMedialist:  "medialists",
}

// Handler serves the /api routes
type Handler struct {
	entities  *entity.Registry
	relations *relationship.Manager
	logger    *zap.Logger
}

// NewHandler creates a handler over the given registry and manager
func NewHandler(entities *entity.Registry, relations *relationship.Manager) *Handler {
	return &Handler{
		entities:  entities,
		relations: relations,
		logger:    logger.Component("api"),
	}
}

// Register mounts every route on group
func (h *Handler) Register(group gin.IRouter) {
	for _, kind := range entity.Kinds() {
		repo, ok := h.entities.Get(kind)
		if !ok {
			continue
		}
		col := group.Group("/" + Paths[kind])
		col.GET("", h.listEntities(repo))
		col.POST("", h.createEntity(repo))
		col.GET("/:uid", h.getEntity(repo))
		col.PUT("/:uid/details", h.updateDetails(repo))
		col.PUT("/:uid/industries", h.updateIndustries(repo))
	}

	people := group.Group("/people/:uid")
	people.GET("/history", h.listHistory)
	people.POST("/history", h.addHistory)
	people.GET("/notes", h.listNotes)
	people.POST("/notes", h.addNote)

	group.GET("/medialists/:uid/members", h.listMembers)
	group.POST("/medialists/:uid/members", h.addMember)
}

type createEntityRequest struct {
	Properties map[string]any `json:"properties" binding:"required"`
	Tags       []string       `json:"tags" binding:"omitempty,dive,required,max=64"`
}

type updateDetailsRequest struct {
	Properties map[string]any `json:"properties" binding:"required"`
}

type updateIndustriesRequest struct {
	Add    []string `json:"add" binding:"omitempty,dive,required,max=64"`
	Remove []string `json:"remove" binding:"omitempty,dive,required,max=64"`
}

type matchResponse struct {
	Entity   *entity.Entity `json:"entity"`
	Distance int            `json:"distance"`
}

func (h *Handler) listEntities(repo *entity.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := entity.Filter{
			Tags: queryList(c, "tags"),
			Name: c.Query("name"),
		}
		if raw := c.Query("max_distance"); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil || d < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "max_distance must be a non-negative integer"})
				return
			}
			filter.MaxDistance = &d
		}

		matches, err := repo.FindByFilter(c.Request.Context(), filter)
		if err != nil {
			h.fail(c, "Failed to list entities", err)
			return
		}

		results := make([]matchResponse, len(matches))
		for i, m := range matches {
			results[i] = matchResponse{Entity: m.Entity, Distance: m.Distance}
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func (h *Handler) createEntity(repo *entity.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createEntityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		e, err := repo.Create(c.Request.Context(), req.Properties, req.Tags)
		if err != nil {
			h.fail(c, "Failed to create entity", err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

func (h *Handler) getEntity(repo *entity.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.Param("uid")
		e, found, err := repo.FindByUID(c.Request.Context(), uid)
		if err != nil {
			h.fail(c, "Failed to fetch entity", err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": strings.ToLower(string(repo.Schema().Kind)) + " not found: " + uid})
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) updateDetails(repo *entity.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateDetailsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		e, err := repo.UpdateProperties(c.Request.Context(), c.Param("uid"), req.Properties)
		if err != nil {
			h.fail(c, "Failed to update entity", err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) updateIndustries(repo *entity.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateIndustriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		e, err := repo.UpdateTags(c.Request.Context(), c.Param("uid"), req.Add, req.Remove)
		if err != nil {
			h.fail(c, "Failed to update industries", err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

type addHistoryRequest struct {
	CompanyUID string         `json:"company_uid" binding:"required"`
	Role       string         `json:"role" binding:"required"`
	StartDate  string         `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string         `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Properties map[string]any `json:"properties"`
}

func (h *Handler) listHistory(c *gin.Context) {
	links, err := h.relations.ListEmploymentFor(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, "Failed to list employment history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": links})
}

func (h *Handler) addHistory(c *gin.Context) {
	var req addHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	props := make(map[string]any, len(req.Properties)+3)
	for k, v := range req.Properties {
		props[k] = v
	}
	props[relationship.FieldRole] = req.Role
	if req.StartDate != "" {
		props[relationship.FieldStartDate] = req.StartDate
	}
	if req.EndDate != "" {
		props[relationship.FieldEndDate] = req.EndDate
	}

	rel, err := h.relations.CreateEmployment(c.Request.Context(), c.Param("uid"), req.CompanyUID, props)
	if err != nil {
		h.fail(c, "Failed to add employment", err)
		return
	}
	c.JSON(http.StatusCreated, rel)
}

type addNoteRequest struct {
	AuthorUID string `json:"author_uid" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

func (h *Handler) listNotes(c *gin.Context) {
	links, err := h.relations.ListNotesFor(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, "Failed to list notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": links})
}

func (h *Handler) addNote(c *gin.Context) {
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rel, err := h.relations.CreateNote(c.Request.Context(), req.AuthorUID, c.Param("uid"), req.Content)
	if err != nil {
		h.fail(c, "Failed to add note", err)
		return
	}
	c.JSON(http.StatusCreated, rel)
}

type addMemberRequest struct {
	PersonUID  string         `json:"person_uid" binding:"required"`
	Properties map[string]any `json:"properties"`
}

func (h *Handler) listMembers(c *gin.Context) {
	links, err := h.relations.ListInclusionsFor(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, "Failed to list medialist members", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": links})
}

func (h *Handler) addMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rel, err := h.relations.CreateInclusion(c.Request.Context(), req.PersonUID, c.Param("uid"), req.Properties)
	if err != nil {
		h.fail(c, "Failed to add medialist member", err)
		return
	}
	c.JSON(http.StatusCreated, rel)
}

// queryList reads a repeated or comma-separated query parameter
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
