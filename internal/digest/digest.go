// Package digest sends admins a periodic usage summary on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Habibullo22/Kinouz/internal/config"
	"github.com/Habibullo22/Kinouz/internal/storage"
	"github.com/Habibullo22/Kinouz/pkg/logx"
)

type Config struct {
	Enabled  bool
	Schedule string
	Timezone string
}

// sendFunc is the single outbound call the digest needs; a func keeps the
// transport dependency out of this package.
type sendFunc func(ctx context.Context, chatID int64, text string) error

type Service struct {
	cfg   Config
	store storage.Store
	send  sendFunc
	dyn   func() *config.Dynamic
	log   logx.Logger

	c *cron.Cron
}

func New(cfg Config, store storage.Store, send sendFunc, dyn func() *config.Dynamic, log logx.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 9 * * *"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, send: send, dyn: dyn, log: log.With(logx.String("comp", "digest"))}
}

// Start registers the cron entry and begins the schedule. Disabled means no-op.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	loc := time.Local
	if s.cfg.Timezone != "" {
		l, err := time.LoadLocation(s.cfg.Timezone)
		if err != nil {
			return fmt.Errorf("digest timezone %q: %w", s.cfg.Timezone, err)
		}
		loc = l
	}
	// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(loc))
	if _, err := s.c.AddFunc(s.cfg.Schedule, s.run); err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c.Start()
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Schedule), logx.String("tz", loc.String()))
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := s.Render(ctx)
	if err != nil {
		s.log.Error("digest render failed", logx.Err(err))
		return
	}
	for _, adminID := range s.dyn().AdminIDs {
		if err := s.send(ctx, adminID, text); err != nil {
			s.log.Warn("digest delivery failed", logx.Int64("admin", adminID), logx.Err(err))
		}
	}
}

// Render builds the digest text from current catalog counts.
func (s *Service) Render(ctx context.Context) (string, error) {
	users, err := s.store.UserCount(ctx)
	if err != nil {
		return "", fmt.Errorf("user count: %w", err)
	}
	movies, err := s.store.MovieCount(ctx)
	if err != nil {
		return "", fmt.Errorf("movie count: %w", err)
	}
	return fmt.Sprintf("📊 Daily digest\n👥 Users: %d\n🎬 Movies: %d", users, movies), nil
}
