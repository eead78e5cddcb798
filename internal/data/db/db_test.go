package db

import (
	"testing"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	svc, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:dbtest?mode=memory&cache=shared"}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, table := range []string{"course", "course_topic", "generation_run"} {
		if !svc.DB().Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle", DSN: "x"}, logger.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
