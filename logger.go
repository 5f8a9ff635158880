package main

import (
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func initLogger(level string) error {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return "", fmt.Sprintf("%s:%d", filename, f.Line)
		},
	})
	log.SetReportCaller(true)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.DebugLevel)
		return fmt.Errorf("VIDEO_APP_LOG_LEVEL: %w", err)
	}
	log.SetLevel(lvl)
	return nil
}
