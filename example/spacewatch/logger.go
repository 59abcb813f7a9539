package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// zerologAdapter routes library logging through zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

func trim(format string) string {
	return strings.TrimSuffix(format, "\n")
}

func (z zerologAdapter) Printf(format string, a ...any) {
	z.logger.Info().Msgf(trim(format), a...)
}

func (z zerologAdapter) Infof(format string, a ...any) {
	z.logger.Info().Msgf(trim(format), a...)
}

func (z zerologAdapter) Debugf(format string, a ...any) {
	z.logger.Debug().Msgf(trim(format), a...)
}

func (z zerologAdapter) Warnf(format string, a ...any) {
	z.logger.Warn().Msgf(trim(format), a...)
}

func (z zerologAdapter) Errorf(format string, a ...any) error {
	err := fmt.Errorf(trim(format), a...)
	z.logger.Error().Msg(err.Error())
	return err
}
