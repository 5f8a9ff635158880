package database

import (
	golog "log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.NewEntry(logrus.StandardLogger())

func Init(l *logrus.Logger) error {
	log = l.WithFields(logrus.Fields{
		"component": "database",
	})
	return nil
}

// Open connects to the sqlite database at path and migrates models.
func Open(path string, models ...interface{}) (*gorm.DB, error) {
	gormLogger := logger.New(
		golog.New(os.Stdout, "\r\n", golog.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  false,       // Disable color
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// set only a single connection so we don't actually have concurrent writes
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	log.Infof("opened database %s", path)
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Errorln(err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Errorln(err)
	}
}

func Vacuum(db *gorm.DB) {
	if err := db.Exec("VACUUM").Error; err != nil {
		log.Errorln(err)
	}
}
