package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

type watermillLogger struct {
	entry  *logrus.Entry
	fields watermill.LogFields
}

// NewWatermillLogger adapts a logrus entry to watermill.LoggerAdapter.
func NewWatermillLogger(entry *logrus.Entry) watermill.LoggerAdapter {
	return &watermillLogger{entry: entry, fields: watermill.LogFields{}}
}

func (a *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	a.withFields(fields).WithError(err).Error(msg)
}

func (a *watermillLogger) Info(msg string, fields watermill.LogFields) {
	a.withFields(fields).Info(msg)
}

func (a *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	a.withFields(fields).Debug(msg)
}

func (a *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	a.withFields(fields).Trace(msg)
}

func (a *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{entry: a.entry, fields: a.combineFields(fields)}
}

func (a *watermillLogger) withFields(fields watermill.LogFields) *logrus.Entry {
	return a.entry.WithFields(logrus.Fields(a.combineFields(fields)))
}

func (a *watermillLogger) combineFields(fields watermill.LogFields) watermill.LogFields {
	allFields := make(watermill.LogFields, len(a.fields)+len(fields))
	for k, v := range a.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}
	return allFields
}
