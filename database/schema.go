package database

// AUTOMATIC DATABASE SETUP - Runs migrations on startup
const DatabaseSchema = `
-- Verified sellers registry. Usernames are stored normalized
-- (lowercase, single leading @).
CREATE TABLE IF NOT EXISTS verified_users (
    username TEXT PRIMARY KEY,
    service TEXT NOT NULL,
    added_by BIGINT,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);

-- Columns added after the first deployments
ALTER TABLE verified_users ADD COLUMN IF NOT EXISTS added_by BIGINT;
ALTER TABLE verified_users ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ DEFAULT NOW();
ALTER TABLE verified_users ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ DEFAULT NOW();

-- Telegram accounts allowed to run /add and /remove. The owner is seeded
-- at startup; /promote and /demote manage the rest.
CREATE TABLE IF NOT EXISTS bot_admins (
    telegram_id BIGINT PRIMARY KEY,
    username TEXT,
    added_at TIMESTAMPTZ DEFAULT NOW()
);

-- Audit trail for registry mutations
CREATE TABLE IF NOT EXISTS audit_log (
    id BIGSERIAL PRIMARY KEY,
    actor_id BIGINT NOT NULL,
    action TEXT NOT NULL,
    target TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log (target);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log (created_at);
`
