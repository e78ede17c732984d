package app

import (
	"errors"
	"fmt"

	"calbot/internal/config"
	"calbot/internal/scheduler"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

// payloadFunc maps a task kind to the work it performs.
type payloadFunc func(kind string, days int) scheduler.Payload

// seedTasks registers the configured tasks and their channel bindings. Tasks
// are left disarmed; StartAll arms the enabled ones.
func seedTasks(s *scheduler.Service, payload payloadFunc, tasks []config.TaskConfig, log logx.Logger) error {
	var errs []error
	for _, tc := range tasks {
		hour, minute, err := scheduler.ParseHHMM(tc.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %q: %w", tc.Name, err))
			continue
		}
		if _, err := s.Add(tc.Name, payload(tc.Kind, tc.Days), hour, minute, tc.IsEnabled(),
			scheduler.WithDescription(tc.Description)); err != nil {
			errs = append(errs, fmt.Errorf("task %q: %w", tc.Name, err))
			continue
		}
		if tc.ChannelID != 0 {
			s.SetTarget(tc.Name, transport.ChatTarget{ChatID: tc.ChannelID, ThreadID: tc.ThreadID})
		}
		log.Info("task registered",
			logx.String("task", tc.Name),
			logx.String("kind", tc.Kind),
			logx.String("time", scheduler.FormatHHMM(hour, minute)),
			logx.Bool("enabled", tc.IsEnabled()),
			logx.Int64("channel_id", tc.ChannelID),
		)
	}
	return errors.Join(errs...)
}
