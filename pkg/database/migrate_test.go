package database

import (
	"strings"
	"testing"
)

// The repositories name their columns in hand-written SELECT/INSERT lists, so
// a column missing from the schema only surfaces at runtime as a 42703. Keep
// the DDL and those lists in lockstep here.
func TestSchemaCoversRepositoryColumns(t *testing.T) {
	t.Parallel()

	schema, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	ddl := string(schema)

	tables := map[string][]string{
		"members": {
			"id", "email", "password_hash", "first_name", "last_name",
			"phone", "role", "birthdate", "created_at", "updated_at",
		},
		"locations": {
			"id", "name", "address", "room", "capacity", "created_at", "updated_at",
		},
		"events": {
			"id", "title", "description", "location_id", "schedule",
			"capacity_total", "capacity_waitlist", "capacity_notify_threshold",
			"occurrence_selection_mode", "requires_validation", "price_cents",
			"free_participation", "registration_deadline", "published",
			"created_by", "created_at", "updated_at",
		},
		"registrations": {
			"id", "event_id", "member_id", "status", "scope_kind",
			"scope_timestamps", "note", "created_at", "updated_at",
		},
		"notifications": {
			"id", "type", "title", "excerpt", "url", "source", "payload", "created_at",
		},
		"notification_recipients": {
			"notification_id", "member_id", "read_at", "emailed_at",
		},
		"badges": {
			"id", "slug", "name", "description", "threshold", "created_at",
		},
		"member_badges": {
			"member_id", "badge_id", "awarded_at",
		},
	}

	for table, columns := range tables {
		body, ok := tableBody(ddl, table)
		if !ok {
			t.Errorf("table %s: not declared in schema", table)
			continue
		}
		for _, col := range columns {
			if !columnDeclared(body, col) {
				t.Errorf("table %s: column %s missing from schema", table, col)
			}
		}
	}

	if !strings.Contains(ddl, "idx_registrations_active") ||
		!strings.Contains(ddl, "WHERE status <> 'cancelled'") {
		t.Error("partial unique index on active registrations missing from schema")
	}
}

// tableBody extracts the column block of a CREATE TABLE statement.
func tableBody(ddl, table string) (string, bool) {
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(ddl, marker)
	if start < 0 {
		return "", false
	}
	rest := ddl[start+len(marker):]
	end := strings.Index(rest, "\n);")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func columnDeclared(body, col string) bool {
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == col {
			return true
		}
	}
	return false
}
