package subscriber

import (
	"context"
	"fmt"
	"tigerscraper/internal/components/assert"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/model"
)

type Saver interface {
	Save(ctx context.Context, record model.Record) (string, error)
}

// RepositorySubscriber saves every record it receives.
type RepositorySubscriber struct {
	repo Saver
	tel  telemetry.API
}

func NewRepositorySubscriber(repo Saver, tel telemetry.API) RepositorySubscriber {
	assert.NotNil(repo)
	assert.NotNil(tel)
	return RepositorySubscriber{
		repo: repo,
		tel:  telemetry.NewScopedAPI("subscriber", tel),
	}
}

func (s RepositorySubscriber) Process(ctx context.Context, record model.Record) error {
	id, err := s.repo.Save(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_repository_process, err)
		return fmt.Errorf("save record: %w", err)
	}
	s.tel.ReportDebug(report_repository_process, "inserted data with id", id)
	return nil
}
