package repo

import (
	"strings"
	"sync"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

// The thread uniqueness key lives in a migration-owned partial index. A
// tag-declared unique index would be created first by AutoMigrate, without
// the deleted_at predicate and under the same name, leaving the insert
// below with no usable conflict arbiter and soft-deleted threads blocking
// reopening.
func TestConversationTagsDeclareNoUniqueIndex(t *testing.T) {
	s, err := schema.Parse(&models.Conversation{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatal(err)
	}

	for _, idx := range s.ParseIndexes() {
		if idx.Class == "UNIQUE" {
			t.Errorf("tag-declared unique index %s", idx.Name)
		}
		if idx.Name == "idx_conversations_org_contact_channel" {
			t.Errorf("thread key index name claimed by model tags")
		}
	}
}

func TestFindOrCreateTargetsPartialIndex(t *testing.T) {
	db := dryRunDB(t)

	conversation := models.Conversation{
		BaseOrgModel: models.BaseOrgModel{OrganizationID: uuid.New()},
		ContactID:    uuid.New(),
		Channel:      models.ChannelWhatsApp,
		Status:       models.ConversationOpen,
	}
	stmt := db.Clauses(conversationKeyConflict()).Create(&conversation).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, `ON CONFLICT ("organization_id","contact_id","channel")`) {
		t.Errorf("conflict target missing the thread key columns: %s", sql)
	}
	if !strings.Contains(sql, "WHERE deleted_at IS NULL DO NOTHING") {
		t.Errorf("conflict target missing the partial index predicate: %s", sql)
	}
}
