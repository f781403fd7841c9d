package handlers

import (
	"strconv"
	"time"

	"guardialog/internal/models"
	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
)

type GuardiaHandler struct {
	guardiaService *services.GuardiaService
	authService    *services.AuthService
}

func NewGuardiaHandler(guardiaService *services.GuardiaService, authService *services.AuthService) *GuardiaHandler {
	return &GuardiaHandler{
		guardiaService: guardiaService,
		authService:    authService,
	}
}

type GuardiaRequest struct {
	QuienLlamo      string    `json:"quien_llamo" binding:"required"`
	FechaLlamado    time.Time `json:"fecha_llamado" binding:"required"`
	Descripcion     string    `json:"descripcion" binding:"required"`
	Prioridad       string    `json:"prioridad" binding:"required,oneof=Alta Media Baja"`
	Estado          string    `json:"estado" binding:"required,oneof=Abierto 'En progreso' Resuelto"`
	NotasResolucion string    `json:"notas_resolucion"`
	Derivado        bool      `json:"derivado"`
	DerivadoA       string    `json:"derivado_a"`
}

// guardiaView decorates a guardia with highlighted copies of the searched
// fields when a free-text query is active.
type guardiaView struct {
	models.Guardia
	QuienLlamoHTML  string `json:"quien_llamo_html,omitempty"`
	DescripcionHTML string `json:"descripcion_html,omitempty"`
	DerivadoAHTML   string `json:"derivado_a_html,omitempty"`
}

func currentUser(c *gin.Context) *models.User {
	user, _ := c.Get("user")
	return user.(*models.User)
}

// List returns one page of the filtered guardia listing. Admins also get
// the distinct assignee names for the filter dropdown.
func (h *GuardiaHandler) List(c *gin.Context) {
	actor := currentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filters := services.GuardiaFilters{
		Guardia:   c.Query("guardia"),
		Estado:    c.Query("estado"),
		Resueltos: c.Query("resueltos"),
		Query:     c.Query("q"),
		Page:      page,
	}

	guardias, total, err := h.guardiaService.List(filters, actor)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to list guardias"})
		return
	}

	response := gin.H{
		"guardias":   presentGuardias(guardias, filters.Query),
		"pagination": services.NewPagination(page, total),
	}

	if actor.EsAdmin {
		assignees, err := h.guardiaService.Assignees()
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to list guardias"})
			return
		}
		response["guardias_disponibles"] = assignees
	}

	c.JSON(200, response)
}

// History returns the full ownership-scoped log, separately paginated.
func (h *GuardiaHandler) History(c *gin.Context) {
	actor := currentUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	guardias, total, err := h.guardiaService.History(page, actor)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(200, gin.H{
		"guardias":   guardias,
		"pagination": services.NewPagination(page, total),
	})
}

// Get returns a single guardia, ownership-checked.
func (h *GuardiaHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid guardia ID"})
		return
	}

	guardia, err := h.guardiaService.Get(uint(id), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(200, guardia)
}

// Create logs a new guardia assigned to the caller.
func (h *GuardiaHandler) Create(c *gin.Context) {
	var req GuardiaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	actor := currentUser(c)
	guardia, err := h.guardiaService.Create(services.CreateGuardiaInput{
		QuienLlamo:      req.QuienLlamo,
		FechaLlamado:    req.FechaLlamado,
		Descripcion:     req.Descripcion,
		Prioridad:       req.Prioridad,
		Estado:          req.Estado,
		NotasResolucion: req.NotasResolucion,
		Derivado:        req.Derivado,
		DerivadoA:       req.DerivadoA,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(201, guardia)
}

// Update edits an existing guardia, ownership-checked.
func (h *GuardiaHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid guardia ID"})
		return
	}

	var req GuardiaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	guardia, err := h.guardiaService.Update(uint(id), services.UpdateGuardiaInput{
		QuienLlamo:      req.QuienLlamo,
		FechaLlamado:    req.FechaLlamado,
		Descripcion:     req.Descripcion,
		Prioridad:       req.Prioridad,
		Estado:          req.Estado,
		NotasResolucion: req.NotasResolucion,
		Derivado:        req.Derivado,
		DerivadoA:       req.DerivadoA,
	}, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(200, guardia)
}

// Resolve marks a guardia resolved, ownership-checked and idempotent.
func (h *GuardiaHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid guardia ID"})
		return
	}

	actor := currentUser(c)
	guardia, err := h.guardiaService.Resolve(uint(id), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.authService.LogAudit(actor.ID, "resolve", "guardia", strconv.FormatUint(id, 10), c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(200, guardia)
}

func presentGuardias(guardias []models.Guardia, query string) []guardiaView {
	views := make([]guardiaView, 0, len(guardias))
	for _, g := range guardias {
		v := guardiaView{Guardia: g}
		if query != "" {
			v.QuienLlamoHTML = services.Highlight(query, g.QuienLlamo)
			v.DescripcionHTML = services.Highlight(query, g.Descripcion)
			v.DerivadoAHTML = services.Highlight(query, g.DerivadoA)
		}
		views = append(views, v)
	}
	return views
}
