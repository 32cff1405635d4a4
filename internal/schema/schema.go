// Package schema holds the SQL migrations for the jobs store. The hosted
// store rejects DDL over its REST API, so these are printed and run by hand.
package schema

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Script is a named SQL migration
type Script struct {
	Name        string
	Description string
	File        string
	SQL         string
}

var scripts = []Script{
	{
		Name:        "create-jobs",
		Description: "Create the jobs table",
		File:        "CREATE_JOBS.sql",
		SQL: `CREATE TABLE IF NOT EXISTS jobs (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  email_source_id TEXT NOT NULL,
  date_received TIMESTAMPTZ,
  sender_email TEXT,
  email_subject TEXT,
  status TEXT NOT NULL DEFAULT 'DRAFT_FROM_EMAIL',
  retailer_name TEXT,
  assigned_engineer_id TEXT,
  created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS jobs_email_source_id_idx ON jobs (email_source_id);
`,
	},
	{
		Name:        "add-assignment-columns",
		Description: "Add engineer assignment columns to jobs",
		File:        "ADD_COLUMNS.sql",
		SQL: `ALTER TABLE jobs
ADD COLUMN IF NOT EXISTS assigned_engineer_name TEXT;

ALTER TABLE jobs
ADD COLUMN IF NOT EXISTS date_assigned TIMESTAMPTZ;

COMMENT ON COLUMN jobs.assigned_engineer_name IS 'Full name of assigned engineer for display';
COMMENT ON COLUMN jobs.date_assigned IS 'Timestamp when job was assigned to engineer';
`,
	},
	{
		Name:        "create-engineers",
		Description: "Create the engineers table with the initial roster",
		File:        "CREATE_ENGINEERS.sql",
		SQL: `CREATE TABLE IF NOT EXISTS engineers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  status TEXT DEFAULT 'active',
  created_at TIMESTAMPTZ DEFAULT NOW()
);

INSERT INTO engineers (id, name, email, status) VALUES
  ('ENG1', 'Engineer 1', 'engineer1@alansari.om', 'active'),
  ('ENG2', 'Engineer 2', 'engineer2@alansari.om', 'active'),
  ('ENG3', 'Engineer 3', 'engineer3@alansari.om', 'active'),
  ('ENG4', 'Engineer 4', 'engineer4@alansari.om', 'active')
ON CONFLICT (id) DO NOTHING;
`,
	},
	{
		Name:        "fix-engineer-id",
		Description: "Change jobs.assigned_engineer_id from UUID to TEXT",
		File:        "FIX_ENGINEER_ID_COLUMN.sql",
		SQL: `ALTER TABLE jobs
ALTER COLUMN assigned_engineer_id TYPE TEXT;
`,
	},
}

// All returns every script in execution order
func All() []Script {
	out := make([]Script, len(scripts))
	copy(out, scripts)
	return out
}

// Names returns the sorted script names
func Names() []string {
	names := make([]string, 0, len(scripts))
	for _, s := range scripts {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a script by name
func Lookup(name string) (Script, error) {
	for _, s := range scripts {
		if s.Name == name {
			return s, nil
		}
	}
	return Script{}, fmt.Errorf("unknown script %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Print writes the script framed for copy-paste into a SQL editor
func Print(w io.Writer, s Script) error {
	rule := strings.Repeat("=", 70)
	_, err := fmt.Fprintf(w, "%s\n-- %s\n%s\n%s%s\n", rule, s.Description, rule, s.SQL, rule)
	return err
}

// Save writes the script SQL into dir and returns the file path
func Save(dir string, s Script) (string, error) {
	path := filepath.Join(dir, s.File)
	if err := os.WriteFile(path, []byte(s.SQL), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
