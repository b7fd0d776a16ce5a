package app

import (
	"startctl/internal/config"
	"startctl/internal/folder"
	"startctl/internal/fs"
	"startctl/internal/registry"
	"startctl/internal/services"
	"startctl/internal/startup"
	"startctl/internal/tasks"
)

// buildSources creates the native source for every family enabled in cfg,
// in scan order.
func buildSources(cfg *config.Config, logger startup.Logger) []startup.Source {
	var sources []startup.Source
	for _, name := range config.AllSources {
		if !cfg.SourceEnabled(name) {
			continue
		}
		switch name {
		case config.SourceRegistry:
			sources = append(sources, registry.NewSource(registry.NewNativeStore(), logger))
		case config.SourceStartupFolders:
			dirs := folder.ResolveDirs(folder.Dirs{
				User:     cfg.StartupFolders.UserDir,
				AllUsers: cfg.StartupFolders.AllUsersDir,
			})
			ignore := fs.NewIgnoreMatcher(cfg.StartupFolders.Ignore)
			sources = append(sources, folder.NewSource(dirs, cfg.StartupFolders.DisabledSuffix, ignore, logger))
		case config.SourceScheduledTasks:
			sources = append(sources, tasks.NewSource(tasks.NewExecRunner(), cfg.ScheduledTasks.Command, cfg.ScheduledTasks.ExcludedPrefixes, logger))
		case config.SourceServices:
			sources = append(sources, services.NewSource(services.NewNativeController(logger), logger))
		}
	}
	return sources
}
