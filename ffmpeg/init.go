package ffmpeg

import "github.com/sirupsen/logrus"

var log = logrus.NewEntry(logrus.StandardLogger())

var (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

func Init(logger *logrus.Logger) error {
	log = logger.WithFields(logrus.Fields{
		"component": "ffmpeg",
	})
	return nil
}

// SetBinaries overrides the ffmpeg and ffprobe executables. Empty values
// keep the current setting.
func SetBinaries(ffmpeg, ffprobe string) {
	if ffmpeg != "" {
		ffmpegBin = ffmpeg
	}
	if ffprobe != "" {
		ffprobeBin = ffprobe
	}
}
