package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/trim"
)

// Gallery is the remote source of video metadata.
type Gallery interface {
	GetVideo(ctx context.Context, videoID string) (*media.Video, error)
	ListVideos(ctx context.Context) ([]media.Video, error)
}

type CatalogService interface {
	Refresh(ctx context.Context) (int, error)
	Videos(ctx context.Context, mode SortMode) ([]*media.Video, error)
	Video(ctx context.Context, id string) (*media.Video, error)
	Prefetch(ctx context.Context, id string) error
	Descriptor(ctx context.Context, id string) (media.Descriptor, error)
	ReloadDescriptor(ctx context.Context, id string) (media.Descriptor, error)
	Trims(ctx context.Context, limit int) ([]*TrimRecord, error)
	LastRefresh(ctx context.Context) (time.Time, error)
	Record(ctx context.Context, o trim.Outcome)
}

// Service caches gallery metadata in sqlite and keeps the trim audit log.
type Service struct {
	repo    Repository
	gallery Gallery
	locator media.Locator
	logger  *slog.Logger
}

func NewService(repo Repository, gallery Gallery, locator media.Locator, logger *slog.Logger) *Service {
	return &Service{repo: repo, gallery: gallery, locator: locator, logger: logger}
}

// Refresh replaces the cached listing with the gallery's current one.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	if s.gallery == nil {
		return 0, fmt.Errorf("gallery not configured")
	}
	videos, err := s.gallery.ListVideos(ctx)
	if err != nil {
		return 0, fmt.Errorf("list gallery videos: %w", err)
	}

	cached := 0
	for i := range videos {
		if !IsVideoExtension(videos[i].Extension) {
			if s.logger != nil {
				s.logger.Debug("skipping non-video entry", "video_id", videos[i].VideoID, "extension", videos[i].Extension)
			}
			continue
		}
		if err := s.repo.UpsertVideo(ctx, &videos[i]); err != nil {
			return 0, fmt.Errorf("cache video %s: %w", videos[i].VideoID, err)
		}
		cached++
	}

	now := time.Now().UTC()
	if err := s.repo.SetConfig(ctx, KeyLastRefresh, now.Format(time.RFC3339)); err != nil && s.logger != nil {
		s.logger.Warn("failed to store refresh time", "error", err)
	}
	if s.logger != nil {
		s.logger.Info("catalog refreshed", "count", cached, "skipped", len(videos)-cached)
	}
	return cached, nil
}

// LastRefresh returns when Refresh last succeeded, or the zero time.
func (s *Service) LastRefresh(ctx context.Context) (time.Time, error) {
	v, err := s.repo.GetConfig(ctx, KeyLastRefresh)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// Videos lists the cached videos in the given order.
func (s *Service) Videos(ctx context.Context, mode SortMode) ([]*media.Video, error) {
	videos, err := s.repo.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	mode.Sort(videos)
	return videos, nil
}

// Video returns cached metadata, fetching it from the gallery on a miss.
func (s *Service) Video(ctx context.Context, id string) (*media.Video, error) {
	v, err := s.repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return v, nil
	}
	return s.fetch(ctx, id)
}

// Prefetch refreshes one video's cached metadata.
func (s *Service) Prefetch(ctx context.Context, id string) error {
	_, err := s.fetch(ctx, id)
	return err
}

func (s *Service) fetch(ctx context.Context, id string) (*media.Video, error) {
	if s.gallery == nil {
		return nil, fmt.Errorf("video %s not cached and gallery not configured", id)
	}
	v, err := s.gallery.GetVideo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", id, err)
	}
	if !IsVideoExtension(v.Extension) {
		return nil, fmt.Errorf("video %s (%q): %w", id, v.Extension, ErrUnsupportedVideo)
	}
	if err := s.repo.UpsertVideo(ctx, v); err != nil {
		return nil, fmt.Errorf("cache video %s: %w", id, err)
	}
	if s.logger != nil {
		s.logger.Debug("video cached", "video_id", id)
	}
	return v, nil
}

// Descriptor builds the trim session input for a video.
func (s *Service) Descriptor(ctx context.Context, id string) (media.Descriptor, error) {
	v, err := s.Video(ctx, id)
	if err != nil {
		return media.Descriptor{}, err
	}
	return media.NewDescriptor(*v, s.locator), nil
}

// ReloadDescriptor is Descriptor with the cache bypassed, for a video whose
// metadata may have changed since it was cached, such as a duration that
// was unknown at upload time.
func (s *Service) ReloadDescriptor(ctx context.Context, id string) (media.Descriptor, error) {
	v, err := s.fetch(ctx, id)
	if err != nil {
		return media.Descriptor{}, err
	}
	return media.NewDescriptor(*v, s.locator), nil
}

func (s *Service) Trims(ctx context.Context, limit int) ([]*TrimRecord, error) {
	return s.repo.ListTrims(ctx, limit)
}

// Record stores a submission outcome in the audit log. An in-place trim
// changes the video, so its cached metadata is dropped.
func (s *Service) Record(ctx context.Context, o trim.Outcome) {
	rec := &TrimRecord{
		ID:        o.ID,
		VideoID:   o.Request.VideoID,
		StartTime: o.Request.StartTime,
		EndTime:   o.Request.EndTime,
		SaveAsNew: o.Request.SaveAsNew,
		Status:    TrimStatusSubmitting,
	}
	if o.Finished {
		rec.DurationMs = o.Duration.Milliseconds()
		if o.Err != nil {
			rec.Status = TrimStatusFailed
			rec.Error = o.Err.Error()
		} else {
			rec.Status = TrimStatusSucceeded
			if o.Result != nil {
				rec.ResultVideoID = o.Result.VideoID
			}
		}
	}

	if err := s.repo.UpsertTrim(ctx, rec); err != nil && s.logger != nil {
		s.logger.Warn("failed to record trim", "trim_id", rec.ID, "error", err)
	}

	if rec.Status == TrimStatusSucceeded && !rec.SaveAsNew {
		if err := s.repo.DeleteVideo(ctx, rec.VideoID); err != nil && s.logger != nil {
			s.logger.Warn("failed to invalidate trimmed video", "video_id", rec.VideoID, "error", err)
		}
	}
}
