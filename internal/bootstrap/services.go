package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/campusgate/portal-api/config"
	"github.com/campusgate/portal-api/internal/adapters/notify"
	redisadapter "github.com/campusgate/portal-api/internal/adapters/redis"
	"github.com/campusgate/portal-api/internal/data"
	"github.com/campusgate/portal-api/internal/ports"
	"github.com/campusgate/portal-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Session   *service.SessionManager
	Login     *service.LoginService
	Feeds     *service.FeedService
	Reminders *service.ReminderService
	Notices   *service.NoticeWatcher

	Provider  ports.IdentityProvider
	Documents *data.DocumentStore
	Notifier  *notify.Scheduler
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the adapter layer and the services on top of it.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := BuildIdentityProvider(deps.Config, logger)
	if err != nil {
		return nil, fmt.Errorf("build identity provider: %w", err)
	}

	documents := data.NewDocumentStore(deps.DB, logger)
	localStore := redisadapter.NewLocalStoreWithPrefix(deps.RedisClient, deps.Config.Redis.KeyPrefix)
	notifier := notify.NewScheduler(notify.SchedulerOptions{
		MaxDelay: deps.Config.Notifications.MaxDelay,
		Logger:   logger,
	})

	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Provider:  provider,
		Documents: documents,
		Store:     localStore,
		Logger:    logger,
	})
	login := service.NewLoginService(service.LoginServiceOptions{
		Provider:  provider,
		Documents: documents,
		Logger:    logger,
	})
	var reminders *service.ReminderService
	if deps.Config.Notifications.Enabled {
		reminders = service.NewReminderService(service.ReminderServiceOptions{
			Notifier: notifier,
			Lead:     deps.Config.Notifications.ReminderLead,
			Logger:   logger,
		})
	}
	feeds := service.NewFeedService(service.FeedServiceOptions{
		Documents: documents,
		Writer:    documents,
		Reminders: reminders,
		Logger:    logger,
	})

	container := &ServiceContainer{
		Session:   sessions,
		Login:     login,
		Feeds:     feeds,
		Reminders: reminders,
		Provider:  provider,
		Documents: documents,
		Notifier:  notifier,
	}

	if deps.Config.Notifications.Enabled {
		container.Notices = service.NewNoticeWatcher(service.NoticeWatcherOptions{
			Documents: documents,
			Notifier:  notifier,
			Logger:    logger,
		})
	}

	return container, nil
}
