package wiki

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

type reporter struct {
	logger    *logrus.Logger
	hub       *sentry.Hub
	component string
}

func (r reporter) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if r.logger != nil {
		entry := r.logger.WithField("error", err.Error()).WithField("component", r.component)
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if r.hub != nil {
		r.hub.CaptureException(err)
	}
}

func (r reporter) logInfo(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithField("component", r.component).WithFields(fields).Info(message)
}

func (r reporter) rollback(uow UnitOfWork) {
	if err := uow.Rollback(); err != nil {
		r.recordError(nil, err, "rolling back unit of work")
	}
}
