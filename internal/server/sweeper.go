package server

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"
)

// SweepConfig holds configuration for the retention sweeper.
type SweepConfig struct {
	Enabled   bool
	Hour      int           // UTC hour of day at which a sweep fires
	Retention time.Duration // age past which a record is eligible
	Meta      MetadataStore
	Blobs     BlobStore
}

// LoadSweepConfigFromEnv reads sweeper configuration from environment
// variables. Defaults match the deployed service: enabled, 02:00 UTC,
// ten-day retention.
func LoadSweepConfigFromEnv(meta MetadataStore, blobs BlobStore) SweepConfig {
	enabled := os.Getenv("RELAY_SWEEP_ENABLED") != "false"

	hour := 2
	if v := os.Getenv("RELAY_SWEEP_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			hour = h
		}
	}

	days := 10
	if v := os.Getenv("RELAY_RETENTION_DAYS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			days = d
		}
	}

	return SweepConfig{
		Enabled:   enabled,
		Hour:      hour,
		Retention: time.Duration(days) * 24 * time.Hour,
		Meta:      meta,
		Blobs:     blobs,
	}
}

// StartSweeper runs the retention sweeper until ctx is cancelled, firing
// once daily at cfg.Hour UTC. Sweeps run sequentially on this goroutine,
// so a run is always either idle or sweeping, never overlapping.
func StartSweeper(ctx context.Context, cfg SweepConfig) {
	if !cfg.Enabled {
		log.Printf("service=sweeper msg=%q", "disabled")
		return
	}

	log.Printf("service=sweeper msg=%q hour=%d retention=%s",
		"starting", cfg.Hour, cfg.Retention)

	for {
		next := nextRunAfter(time.Now().UTC(), cfg.Hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-timer.C:
			SweepOnce(ctx, cfg)
		}
	}
}

// nextRunAfter returns the next occurrence of hour (UTC) strictly after now.
func nextRunAfter(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// expired reports whether a record created at createdAt is past the
// retention cutoff. Strictly before: a record aged exactly the retention
// window survives until the next sweep.
func expired(createdAt, cutoff time.Time) bool {
	return createdAt.Before(cutoff)
}

// SweepOnce performs one full scan-and-delete pass: every record older than
// the retention window loses its blob, then its metadata row. The pass is
// best-effort; a failed delete is logged and counted, never fatal, and the
// record's survival means the next sweep retries it. A blob delete failure
// does not block the metadata delete for the same record.
func SweepOnce(ctx context.Context, cfg SweepConfig) {
	start := time.Now()
	sweepRunsTotal.Inc()
	log.Printf("service=sweeper msg=%q", "starting_sweep")

	records, err := cfg.Meta.ListAll(ctx)
	if err != nil {
		sweepErrorsTotal.Inc()
		log.Printf("service=sweeper msg=%q err=%v", "list_failed", err)
		return
	}

	cutoff := time.Now().UTC().Add(-cfg.Retention)
	deleted := 0
	for _, rec := range records {
		if !expired(rec.CreatedAt, cutoff) {
			continue
		}

		age := time.Since(rec.CreatedAt)
		log.Printf("service=sweeper msg=%q id=%s age=%s",
			"deleting_expired_file", rec.ID, age)

		if err := cfg.Blobs.Remove(ctx, objectKey(rec.ID, rec.Filename)); err != nil {
			sweepErrorsTotal.Inc()
			log.Printf("service=sweeper msg=%q id=%s err=%v", "blob_delete_failed", rec.ID, err)
			// Still attempt the metadata delete below.
		}

		if err := cfg.Meta.Delete(ctx, rec.ID); err != nil {
			sweepErrorsTotal.Inc()
			log.Printf("service=sweeper msg=%q id=%s err=%v", "meta_delete_failed", rec.ID, err)
			continue
		}

		deleted++
		sweepDeletedTotal.Inc()
	}

	duration := time.Since(start)
	log.Printf("service=sweeper msg=%q scanned=%d deleted=%d duration_ms=%d",
		"sweep_complete", len(records), deleted, duration.Milliseconds())
}
