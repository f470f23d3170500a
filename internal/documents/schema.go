package documents

// PsqlSchema creates the documents table on postgres.
const PsqlSchema = `
CREATE TABLE IF NOT EXISTS planner_document (
	user_id            TEXT PRIMARY KEY,
	workout_templates  JSONB NOT NULL DEFAULT '[]'::jsonb,
	custom_exercises   JSONB NOT NULL DEFAULT '[]'::jsonb,
	exercise_favorites JSONB NOT NULL DEFAULT '[]'::jsonb,
	last_synced        BIGINT NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS planner_document_custom_idx
	ON planner_document USING GIN (custom_exercises jsonb_path_ops);
`

// MysqlSchema creates the documents table on mysql.
const MysqlSchema = `
CREATE TABLE IF NOT EXISTS planner_document (
	user_id            VARCHAR(64) NOT NULL PRIMARY KEY,
	workout_templates  JSON NOT NULL,
	custom_exercises   JSON NOT NULL,
	exercise_favorites JSON NOT NULL,
	last_synced        BIGINT NOT NULL,
	updated_at         DATETIME(3) NOT NULL
);
`
