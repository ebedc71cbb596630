package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

// LogFormatter renders entries as one key=value line with sorted fields.
// Colors are ANSI escapes and can be turned off for non-terminal output.
type LogFormatter struct {
	DisableColors bool
}

func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	f.pair(&b, "level", level, levelColor(entry.Level))
	f.pair(&b, "ts", entry.Time.Format("2006-01-02 15:04:05.000"), colorLightYellow)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := renderValue(entry.Data[k])
		if value == "" {
			continue
		}
		f.pair(&b, k, value, valueColor(value))
	}
	f.pair(&b, "msg", strconv.Quote(entry.Message), colorLightGreen)

	line := strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(b.String())
	return []byte(line + "\n"), nil
}

func (f *LogFormatter) pair(b *strings.Builder, key, value string, color int) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	if f.DisableColors {
		fmt.Fprintf(b, "%s=%s", key, value)
		return
	}
	fmt.Fprintf(b, "\x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", colorCyan, key, color, value)
}

func renderValue(val any) string {
	if err, ok := val.(error); ok {
		return strconv.Quote(err.Error())
	}
	m, err := sonic.Marshal(val)
	if err != nil {
		return strconv.Quote(fmt.Sprint(val))
	}
	return string(m)
}

func levelColor(level log.Level) int {
	switch level {
	case log.DebugLevel, log.TraceLevel:
		return colorGray
	case log.WarnLevel:
		return colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}

func valueColor(value string) int {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return colorGreen
	}
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return colorLightYellow
	}
	return colorCyan
}
