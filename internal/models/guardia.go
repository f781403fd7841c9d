package models

import (
	"time"
)

const (
	PrioridadAlta  = "Alta"
	PrioridadMedia = "Media"
	PrioridadBaja  = "Baja"

	EstadoAbierto    = "Abierto"
	EstadoEnProgreso = "En progreso"
	EstadoResuelto   = "Resuelto"
)

// RecentWindow is how far back a logged entry still counts as recent in
// list views.
const RecentWindow = 10 * time.Minute

func ValidPrioridad(p string) bool {
	return p == PrioridadAlta || p == PrioridadMedia || p == PrioridadBaja
}

func ValidEstado(e string) bool {
	return e == EstadoAbierto || e == EstadoEnProgreso || e == EstadoResuelto
}

// Guardia is a logged on-call incident. QuienGuardia holds the assignee's
// username as a snapshot taken at creation, not a foreign key; historical
// entries are not rewritten if an account ever changes.
type Guardia struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	QuienLlamo      string     `json:"quien_llamo" gorm:"type:varchar(255);not null"`
	FechaLlamado    time.Time  `json:"fecha_llamado" gorm:"not null;index"`
	QuienGuardia    string     `json:"quien_guardia" gorm:"type:varchar(255);not null;index"`
	Descripcion     string     `json:"descripcion" gorm:"type:text;not null"`
	Prioridad       string     `json:"prioridad" gorm:"type:varchar(20);not null;index"`
	FechaRegistro   time.Time  `json:"fecha_registro" gorm:"not null"`
	Estado          string     `json:"estado" gorm:"type:varchar(20);not null;index"`
	NotasResolucion string     `json:"notas_resolucion" gorm:"type:text"`
	FechaResolucion *time.Time `json:"fecha_resolucion"`
	Derivado        bool       `json:"derivado" gorm:"default:false"`
	DerivadoA       string     `json:"derivado_a" gorm:"type:varchar(255)"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Reciente is a display hint recomputed per request, never persisted.
	Reciente bool `json:"reciente" gorm:"-"`
}

func (Guardia) TableName() string { return "guardias" }
