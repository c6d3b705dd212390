// Package gradebook serves stored papers back out: summaries, statistics,
// CSV exports and in-place updates of an existing paper.
package gradebook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nonsonwune/boe_visualizer/importer"
	"github.com/nonsonwune/boe_visualizer/models"
	"github.com/nonsonwune/boe_visualizer/store"
)

// PaperNotFoundError is returned for operations on a paper code that has
// never been ingested.
type PaperNotFoundError struct {
	Code string
}

func (e *PaperNotFoundError) Error() string {
	return fmt.Sprintf("paper not found: %s", e.Code)
}

// PaperData bundles a paper with its exported sheet and statistics.
type PaperData struct {
	Paper      models.Paper           `json:"paper"`
	CSV        string                 `json:"csv"`
	Statistics models.PaperStatistics `json:"statistics"`
}

type Service struct {
	store    store.Store
	importer *importer.Importer
	now      func() time.Time
}

func NewService(s store.Store, im *importer.Importer) *Service {
	return &Service{store: s, importer: im, now: time.Now}
}

func (s *Service) GetPaper(ctx context.Context, code string) (models.Paper, error) {
	code = strings.TrimSpace(code)
	p, err := s.store.PaperByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return models.Paper{}, &PaperNotFoundError{Code: code}
	}
	return p, err
}

func (s *Service) PaperExists(ctx context.Context, code string) (bool, error) {
	_, err := s.GetPaper(ctx, code)
	var nf *PaperNotFoundError
	if errors.As(err, &nf) {
		return false, nil
	}
	return err == nil, err
}

// ListPapers returns every paper, newest year and semester first.
func (s *Service) ListPapers(ctx context.Context) ([]models.PaperSummary, error) {
	return s.store.ListPapers(ctx)
}

func (s *Service) PaperStatistics(ctx context.Context, code string) (models.PaperStatistics, error) {
	p, err := s.GetPaper(ctx, code)
	if err != nil {
		return models.PaperStatistics{}, err
	}
	return s.store.PaperStatistics(ctx, p.ID)
}

// PaperHistory lists the uploads recorded for a paper, most recent first.
func (s *Service) PaperHistory(ctx context.Context, code string) ([]models.CSVUpload, error) {
	p, err := s.GetPaper(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.store.PaperUploads(ctx, p.ID)
}

// ExportPaperCSV regenerates a grade sheet for a paper from stored
// submissions.
func (s *Service) ExportPaperCSV(ctx context.Context, code string) (string, error) {
	p, err := s.GetPaper(ctx, code)
	if err != nil {
		return "", err
	}
	return s.export(ctx, p.ID)
}

func (s *Service) PaperData(ctx context.Context, code string) (PaperData, error) {
	p, err := s.GetPaper(ctx, code)
	if err != nil {
		return PaperData{}, err
	}
	sheet, err := s.export(ctx, p.ID)
	if err != nil {
		return PaperData{}, err
	}
	stats, err := s.store.PaperStatistics(ctx, p.ID)
	if err != nil {
		return PaperData{}, err
	}
	return PaperData{Paper: p, CSV: sheet, Statistics: stats}, nil
}

// UpdatePaper ingests csv against a paper that already exists.
func (s *Service) UpdatePaper(ctx context.Context, code, csv string) (importer.ImportSummary, error) {
	p, err := s.GetPaper(ctx, code)
	if err != nil {
		return importer.ImportSummary{}, err
	}
	return s.importer.Ingest(ctx, importer.Request{
		PaperCode:  p.Code,
		CSV:        csv,
		SourceName: importer.SourceName(p.Code, "updated", s.now()),
	})
}
