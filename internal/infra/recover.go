package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Recover logs a panic of the surrounding goroutine instead of crashing the
// process. It must be deferred directly:
//
//	defer infra.Recover(entry, "process_message")
func Recover(entry *log.Entry, id string) {
	if err := recover(); err != nil {
		if entry == nil {
			entry = log.NewEntry(log.StandardLogger())
		}
		entry.WithFields(log.Fields{
			"job":    id,
			"panic":  fmt.Sprint(err),
			"source": identifyPanic(),
		}).Error("job panicked, recovered")
	}
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(4, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
