package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"guardialog/internal/models"

	"gorm.io/gorm"
)

const csvTimeFormat = "2006-01-02 15:04"

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

type TopGuardia struct {
	QuienGuardia string `json:"quien_guardia"`
	Total        int64  `json:"total"`
}

type DashboardStats struct {
	Total             int64        `json:"total"`
	Abiertos          int64        `json:"abiertos"`
	EnProgreso        int64        `json:"en_progreso"`
	Resueltos         int64        `json:"resueltos"`
	ResueltosHoy      int64        `json:"resueltos_hoy"`
	TopGuardias       []TopGuardia `json:"top_guardias,omitempty"`
	TiempoPromedioMin *float64     `json:"tiempo_promedio_min"`
}

// DashboardStats computes the aggregate rollups. An assignee filter narrows
// every count and suppresses the top-assignee ranking. An entry only counts
// as resolved when it carries a resolution timestamp.
func (s *ReportService) DashboardStats(guardia string) (*DashboardStats, error) {
	base := func() *gorm.DB {
		q := s.db.Model(&models.Guardia{})
		if guardia != "" {
			q = q.Where("quien_guardia = ?", guardia)
		}
		return q
	}

	stats := &DashboardStats{}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("estado = ?", models.EstadoAbierto).Count(&stats.Abiertos).Error; err != nil {
		return nil, err
	}
	if err := base().Where("estado = ?", models.EstadoEnProgreso).Count(&stats.EnProgreso).Error; err != nil {
		return nil, err
	}

	resolved := func() *gorm.DB {
		return base().Where("estado = ? AND fecha_resolucion IS NOT NULL", models.EstadoResuelto)
	}
	if err := resolved().Count(&stats.Resueltos).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := resolved().Where("fecha_resolucion >= ?", startOfDay).Count(&stats.ResueltosHoy).Error; err != nil {
		return nil, err
	}

	if guardia == "" {
		if err := s.db.Model(&models.Guardia{}).
			Select("quien_guardia, COUNT(*) AS total").
			Where("estado = ? AND fecha_resolucion IS NOT NULL", models.EstadoResuelto).
			Group("quien_guardia").
			Order("total DESC").
			Limit(5).
			Scan(&stats.TopGuardias).Error; err != nil {
			return nil, err
		}
	}

	avg, err := s.avgResolutionMinutes(base())
	if err != nil {
		return nil, err
	}
	stats.TiempoPromedioMin = avg

	return stats, nil
}

// avgResolutionMinutes averages fecha_resolucion - fecha_llamado over
// entries that carry a resolution timestamp. The subtraction happens here
// rather than in SQL: interval arithmetic is the one place the supported
// dialects disagree.
func (s *ReportService) avgResolutionMinutes(q *gorm.DB) (*float64, error) {
	var rows []struct {
		FechaLlamado    time.Time
		FechaResolucion time.Time
	}
	if err := q.Where("fecha_resolucion IS NOT NULL").
		Select("fecha_llamado", "fecha_resolucion").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	var totalMin float64
	for _, r := range rows {
		totalMin += r.FechaResolucion.Sub(r.FechaLlamado).Minutes()
	}
	avg := totalMin / float64(len(rows))
	return &avg, nil
}

// ExportCSV streams the unpaginated filtered set, newest call first, as
// CSV. The UTF-8 byte-order mark keeps spreadsheet imports from mangling
// accented text.
func (s *ReportService) ExportCSV(filters GuardiaFilters, actor *models.User, w io.Writer) error {
	var guardias []models.Guardia
	if err := guardiaScope(s.db, filters, actor).
		Order("fecha_llamado DESC").
		Find(&guardias).Error; err != nil {
		return err
	}

	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{
		"ID", "Quien llamo", "Fecha llamado", "Guardia", "Descripcion",
		"Prioridad", "Estado", "Fecha registro", "Notas resolucion",
		"Fecha resolucion", "Derivado", "Derivado a",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, g := range guardias {
		resolucion := ""
		if g.FechaResolucion != nil {
			resolucion = g.FechaResolucion.Format(csvTimeFormat)
		}
		derivado := "No"
		if g.Derivado {
			derivado = "Si"
		}

		record := []string{
			strconv.FormatUint(uint64(g.ID), 10),
			g.QuienLlamo,
			g.FechaLlamado.Format(csvTimeFormat),
			g.QuienGuardia,
			g.Descripcion,
			g.Prioridad,
			g.Estado,
			g.FechaRegistro.Format(csvTimeFormat),
			g.NotasResolucion,
			resolucion,
			derivado,
			g.DerivadoA,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
