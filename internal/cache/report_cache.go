package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/domain"
)

const reportKeyPrefix = "analytics:report:"

// ReportCache keeps monthly analytics reports in Redis for a short TTL.
// Payment recording invalidates the whole namespace since any payment can
// shift every period's numbers.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

func key(period domain.Period, year int) string {
	return fmt.Sprintf("%s%s:%d", reportKeyPrefix, period, year)
}

// Get returns the cached report, or nil on miss or cache error.
func (c *ReportCache) Get(ctx context.Context, period domain.Period, year int) *domain.MonthlyReport {
	raw, err := c.client.Get(ctx, key(period, year)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).Warn("report cache read failed")
		}
		return nil
	}

	var report domain.MonthlyReport
	if err := json.Unmarshal(raw, &report); err != nil {
		logrus.WithError(err).Warn("report cache entry corrupt")
		return nil
	}

	return &report
}

// Set stores a report. Errors are logged, never returned; the cache is an
// optimization, not a source of truth.
func (c *ReportCache) Set(ctx context.Context, report *domain.MonthlyReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		logrus.WithError(err).Warn("report cache marshal failed")
		return
	}

	if err := c.client.Set(ctx, key(report.Period, report.Year), raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("report cache write failed")
	}
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, reportKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logrus.WithError(err).Warn("report cache delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).Warn("report cache scan failed")
	}
}
