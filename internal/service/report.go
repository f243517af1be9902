package service

import (
	"context"
	"time"

	"welfare/internal/domain"
	"welfare/internal/report"
	"welfare/internal/repository"
)

// ReportService assembles contribution reports from the ledger.
type ReportService struct {
	memberRepo repository.MemberRepository
	ledgerRepo repository.LedgerRepository
}

// NewReportService creates a new ReportService.
func NewReportService(memberRepo repository.MemberRepository, ledgerRepo repository.LedgerRepository) *ReportService {
	return &ReportService{memberRepo: memberRepo, ledgerRepo: ledgerRepo}
}

// ContributionReport returns the ledger entries dated from the start of from
// through the end of to.
func (s *ReportService) ContributionReport(ctx context.Context, from, to time.Time) (*report.ContributionReport, error) {
	from = startOfDay(from)
	to = startOfDay(to)
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	entries, err := s.ledgerRepo.List(ctx, domain.LedgerFilter{
		From: from,
		To:   to.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	rows := make([]report.Row, 0, len(entries))
	for _, e := range entries {
		row := report.Row{
			Date:      e.CreatedAt,
			Type:      e.Type,
			Method:    e.Method,
			Reference: e.Reference,
			Amount:    e.Amount,
		}
		if m, ok := byID[e.MemberID]; ok {
			row.MemberNumber = m.MemberNumber
			row.MemberName = m.FullName
		} else {
			row.MemberNumber = e.MemberID
		}
		rows = append(rows, row)
	}

	return report.NewContributionReport(from, to, time.Now(), rows), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
