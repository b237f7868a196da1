package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/internal/repository"
	"github.com/jwalitptl/health-enrollment/internal/service"
	"github.com/jwalitptl/health-enrollment/pkg/metrics"
)

const (
	// RecentLimit is the number of newest clients and programs on the dashboard.
	RecentLimit = 5
	// TimelineMonths is the length of the monthly enrollment timeline.
	TimelineMonths = 12

	keyDashboard    = "dashboard"
	keyDistribution = "distribution"
	keyTimeline     = "timeline"
)

// Service computes dashboard and enrollment aggregates. Results are cached
// until the TTL expires or Invalidate is called after a write. Reports that
// depend on today's date are keyed by the day or month they were built
// for, so a cache without expiry never serves a stale window or age.
type Service struct {
	store   repository.Store
	cache   *cache.Cache
	metrics *metrics.Metrics
	clock   service.Clock
}

func NewService(store repository.Store, ttl time.Duration, m *metrics.Metrics, clock service.Clock) *Service {
	return &Service{
		store:   store,
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
		clock:   clock,
	}
}

// Invalidate drops every cached report.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

// cacheKey scopes a report to the period its content depends on.
func cacheKey(report, period string) string {
	if period == "" {
		return report
	}
	return report + ":" + period
}

func (s *Service) cached(name, key string) (interface{}, bool) {
	v, ok := s.cache.Get(key)
	if s.metrics != nil {
		result := "miss"
		if ok {
			result = "hit"
		}
		s.metrics.ReportCache.WithLabelValues(name, result).Inc()
	}
	return v, ok
}

// Dashboard returns totals and the most recently created clients and programs.
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	today := s.clock.Now()
	key := cacheKey(keyDashboard, today.Format(model.DateLayout))
	if v, ok := s.cached(keyDashboard, key); ok {
		return v.(*model.Dashboard), nil
	}

	var (
		d   = &model.Dashboard{}
		err error
	)
	if d.TotalClients, err = s.store.Clients().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	if d.TotalPrograms, err = s.store.Programs().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count programs: %w", err)
	}
	if d.TotalEnrollments, err = s.store.Enrollments().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	clients, err := s.store.Clients().Recent(ctx, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent clients: %w", err)
	}
	d.RecentClients = model.ClientViews(clients, today)

	if d.RecentPrograms, err = s.store.Programs().Recent(ctx, RecentLimit); err != nil {
		return nil, fmt.Errorf("failed to load recent programs: %w", err)
	}

	s.cache.SetDefault(key, d)
	return d, nil
}

// ProgramDistribution counts enrollments per program, programs without
// enrollments included, largest first.
func (s *Service) ProgramDistribution(ctx context.Context) ([]model.ProgramCount, error) {
	if v, ok := s.cached(keyDistribution, keyDistribution); ok {
		return v.([]model.ProgramCount), nil
	}

	counts, err := s.store.Enrollments().CountByProgram(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments by program: %w", err)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		if counts[i].ProgramName != counts[j].ProgramName {
			return counts[i].ProgramName < counts[j].ProgramName
		}
		return counts[i].ProgramID.String() < counts[j].ProgramID.String()
	})

	s.cache.SetDefault(keyDistribution, counts)
	return counts, nil
}

// MonthlyTimeline counts enrollments per calendar month over the last
// TimelineMonths months, oldest first, with empty months reported as zero.
func (s *Service) MonthlyTimeline(ctx context.Context) ([]model.MonthCount, error) {
	now := s.clock.Now().UTC()
	key := cacheKey(keyTimeline, now.Format("2006-01"))
	if v, ok := s.cached(keyTimeline, key); ok {
		return v.([]model.MonthCount), nil
	}

	months := timelineMonths(now)
	from := months[len(months)-1].Start()
	to := months[0].Start().AddDate(0, 1, 0)

	counts, err := s.store.Enrollments().CountByMonth(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments by month: %w", err)
	}

	timeline := buildTimeline(months, counts)
	s.cache.SetDefault(key, timeline)
	return timeline, nil
}

// EnrollmentReport lists every enrollment with both sides embedded plus the
// two aggregates.
func (s *Service) EnrollmentReport(ctx context.Context) (*model.EnrollmentReport, error) {
	records, err := s.store.Enrollments().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	today := s.clock.Now()
	report := &model.EnrollmentReport{
		Enrollments: make([]*model.EnrollmentDetail, 0, len(records)),
	}
	for _, rec := range records {
		report.Enrollments = append(report.Enrollments, rec.WithBoth(today))
	}

	if report.ProgramDistribution, err = s.ProgramDistribution(ctx); err != nil {
		return nil, err
	}
	if report.MonthlyTimeline, err = s.MonthlyTimeline(ctx); err != nil {
		return nil, err
	}

	log.Debug().Int("enrollments", len(records)).Msg("enrollment report built")
	return report, nil
}

// timelineMonths labels the timeline by stepping back from the first of the
// current month in 30 day strides, newest first. A stride can land in the
// same month twice or jump over a short month; duplicates are skipped and
// the walk continues until TimelineMonths distinct months are collected.
func timelineMonths(now time.Time) []model.MonthKey {
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]model.MonthKey, 0, TimelineMonths)
	seen := make(map[model.MonthKey]bool, TimelineMonths)
	for i := 0; len(months) < TimelineMonths; i++ {
		k := model.MonthKeyOf(anchor.AddDate(0, 0, -30*i))
		if seen[k] {
			continue
		}
		seen[k] = true
		months = append(months, k)
	}
	return months
}

// buildTimeline zero-fills the labelled months, merges in any month with
// data that the stride walk jumped over, and keeps the newest
// TimelineMonths entries in chronological order.
func buildTimeline(months []model.MonthKey, counts map[model.MonthKey]int) []model.MonthCount {
	keys := make(map[model.MonthKey]bool, len(months)+len(counts))
	for _, k := range months {
		keys[k] = true
	}
	for k, n := range counts {
		if n > 0 {
			keys[k] = true
		}
	}

	ordered := make([]model.MonthKey, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })
	if len(ordered) > TimelineMonths {
		ordered = ordered[len(ordered)-TimelineMonths:]
	}

	timeline := make([]model.MonthCount, 0, len(ordered))
	for _, k := range ordered {
		timeline = append(timeline, model.MonthCount{Month: k.Label(), Count: counts[k]})
	}
	return timeline
}
