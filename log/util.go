package log

import (
	"runtime"
	"strconv"
)

// SkipCaller returns caller's location (file and line) to help debug.
func SkipCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	return file + ":" + strconv.Itoa(line)
}
