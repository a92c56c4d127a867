package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved pipeline settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Portent", GetVersion())

	logger.Info().
		Strs("boards", config.Sources.Boards).
		Str("backend", config.Classifier.Backend).
		Str("mode", config.Classifier.Mode).
		Int("chunks", config.Classifier.Chunks).
		Str("schedule", config.Scheduler.Schedule).
		Str("storage", config.Storage.Type).
		Msg("Pipeline configuration")
}
