package services

import (
	"errors"
	"time"

	"guardialog/internal/models"

	"gorm.io/gorm"
)

// Listings always surface urgent work first: priority rank Alta < Media <
// Baja, then most recent call first. Applied to every filter combination.
const guardiaOrder = "CASE prioridad WHEN 'Alta' THEN 1 WHEN 'Media' THEN 2 ELSE 3 END, fecha_llamado DESC"

type GuardiaService struct {
	db *gorm.DB
}

func NewGuardiaService(db *gorm.DB) *GuardiaService {
	return &GuardiaService{db: db}
}

type GuardiaFilters struct {
	Guardia   string // assignee filter, honored for admins only
	Estado    string
	Resueltos string // "hoy" or "semana"
	Query     string
	Page      int
}

type CreateGuardiaInput struct {
	QuienLlamo      string
	FechaLlamado    time.Time
	Descripcion     string
	Prioridad       string
	Estado          string
	NotasResolucion string
	Derivado        bool
	DerivadoA       string
}

type UpdateGuardiaInput struct {
	QuienLlamo      string
	FechaLlamado    time.Time
	Descripcion     string
	Prioridad       string
	Estado          string
	NotasResolucion string
	Derivado        bool
	DerivadoA       string
}

// guardiaScope builds the WHERE conditions shared by listing, history and
// the CSV export. Non-admins are always restricted to their own entries.
func guardiaScope(db *gorm.DB, filters GuardiaFilters, actor *models.User) *gorm.DB {
	q := db.Model(&models.Guardia{})

	if !actor.EsAdmin {
		q = q.Where("quien_guardia = ?", actor.Username)
	} else if filters.Guardia != "" {
		q = q.Where("quien_guardia = ?", filters.Guardia)
	}

	if filters.Estado != "" {
		q = q.Where("estado = ?", filters.Estado)
	}

	now := time.Now()
	switch filters.Resueltos {
	case "hoy":
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		q = q.Where("fecha_resolucion >= ?", startOfDay)
	case "semana":
		q = q.Where("fecha_resolucion >= ?", now.AddDate(0, 0, -7))
	}

	if filters.Query != "" {
		needle := "%" + Normalize(filters.Query) + "%"
		q = q.Where(
			"("+normalizedColumn("descripcion")+" LIKE ? OR "+
				normalizedColumn("quien_llamo")+" LIKE ? OR "+
				normalizedColumn("derivado_a")+" LIKE ?)",
			needle, needle, needle,
		)
	}

	return q
}

// Create logs a new guardia assigned to the creating user. FechaRegistro is
// stamped server-side. An entry created already resolved gets its
// resolution timestamp at creation time.
func (s *GuardiaService) Create(in CreateGuardiaInput, actor *models.User) (*models.Guardia, error) {
	if !models.ValidPrioridad(in.Prioridad) || !models.ValidEstado(in.Estado) {
		return nil, ErrValidation
	}

	now := time.Now()
	guardia := &models.Guardia{
		QuienLlamo:      in.QuienLlamo,
		FechaLlamado:    in.FechaLlamado,
		QuienGuardia:    actor.Username,
		Descripcion:     in.Descripcion,
		Prioridad:       in.Prioridad,
		FechaRegistro:   now,
		Estado:          in.Estado,
		NotasResolucion: in.NotasResolucion,
		Derivado:        in.Derivado,
		DerivadoA:       in.DerivadoA,
	}
	if in.Estado == models.EstadoResuelto {
		guardia.FechaResolucion = &now
	}

	if err := s.db.Create(guardia).Error; err != nil {
		return nil, err
	}

	guardia.Reciente = true
	return guardia, nil
}

// Get fetches a guardia, enforcing ownership: only the assignee or an admin
// may see it.
func (s *GuardiaService) Get(id uint, actor *models.User) (*models.Guardia, error) {
	var guardia models.Guardia
	if err := s.db.First(&guardia, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardiaNotFound
		}
		return nil, err
	}

	if !actor.EsAdmin && guardia.QuienGuardia != actor.Username {
		return nil, ErrForbidden
	}

	guardia.Reciente = guardia.FechaRegistro.After(time.Now().Add(-models.RecentWindow))
	return &guardia, nil
}

// Update edits an existing guardia under the same ownership rule as Get.
// Resolution stamping: transitioning into Resuelto stamps FechaResolucion
// once, editing an already resolved entry keeps the original stamp, and
// reopening clears it.
func (s *GuardiaService) Update(id uint, in UpdateGuardiaInput, actor *models.User) (*models.Guardia, error) {
	if !models.ValidPrioridad(in.Prioridad) || !models.ValidEstado(in.Estado) {
		return nil, ErrValidation
	}

	guardia, err := s.Get(id, actor)
	if err != nil {
		return nil, err
	}

	wasResuelto := guardia.Estado == models.EstadoResuelto

	guardia.QuienLlamo = in.QuienLlamo
	guardia.FechaLlamado = in.FechaLlamado
	guardia.Descripcion = in.Descripcion
	guardia.Prioridad = in.Prioridad
	guardia.Estado = in.Estado
	guardia.NotasResolucion = in.NotasResolucion
	guardia.Derivado = in.Derivado
	guardia.DerivadoA = in.DerivadoA

	switch {
	case in.Estado == models.EstadoResuelto && !wasResuelto:
		now := time.Now()
		guardia.FechaResolucion = &now
	case in.Estado != models.EstadoResuelto:
		guardia.FechaResolucion = nil
	}

	if err := s.db.Save(guardia).Error; err != nil {
		return nil, err
	}

	return guardia, nil
}

// Resolve marks a guardia resolved. Idempotent: repeat calls keep the
// timestamp of the first one. An entry left marked resolved without a
// timestamp picks one up here.
func (s *GuardiaService) Resolve(id uint, actor *models.User) (*models.Guardia, error) {
	guardia, err := s.Get(id, actor)
	if err != nil {
		return nil, err
	}

	if guardia.Estado == models.EstadoResuelto && guardia.FechaResolucion != nil {
		return guardia, nil
	}

	guardia.Estado = models.EstadoResuelto
	if guardia.FechaResolucion == nil {
		now := time.Now()
		guardia.FechaResolucion = &now
	}

	if err := s.db.Save(guardia).Error; err != nil {
		return nil, err
	}

	return guardia, nil
}

// List returns one page of the filtered set plus the unpaginated total.
// Pagination happens in the database, never over a materialized slice.
func (s *GuardiaService) List(filters GuardiaFilters, actor *models.User) ([]models.Guardia, int64, error) {
	q := guardiaScope(s.db, filters, actor)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}

	var guardias []models.Guardia
	if err := q.Order(guardiaOrder).
		Limit(PageSize).
		Offset((page - 1) * PageSize).
		Find(&guardias).Error; err != nil {
		return nil, 0, err
	}

	markRecientes(guardias)
	return guardias, total, nil
}

// History returns the full ownership-scoped log, paginated, with no other
// filters applied.
func (s *GuardiaService) History(page int, actor *models.User) ([]models.Guardia, int64, error) {
	return s.List(GuardiaFilters{Page: page}, actor)
}

// Assignees returns the distinct assignee usernames, for the admin filter
// dropdown.
func (s *GuardiaService) Assignees() ([]string, error) {
	var names []string
	if err := s.db.Model(&models.Guardia{}).
		Distinct("quien_guardia").
		Order("quien_guardia").
		Pluck("quien_guardia", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func markRecientes(guardias []models.Guardia) {
	cutoff := time.Now().Add(-models.RecentWindow)
	for i := range guardias {
		guardias[i].Reciente = guardias[i].FechaRegistro.After(cutoff)
	}
}
