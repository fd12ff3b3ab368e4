package scheduler

import (
	"fmt"

	"apptrackr/internal/common/logger"
)

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvToFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvToFields(keysAndValues)
	fields["error"] = err
	l.logger.Error("cron: "+msg, fields)
}

func kvToFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 == 1 {
		fields["extra"] = keysAndValues[len(keysAndValues)-1]
	}
	return fields
}
