package store

// postgresSchema implements the persisted schema of spec.md §6.3: the
// contacts table, three lookup indexes, one composite unique index and
// one self-referential foreign key.
//
// The unique index is intentionally NOT "NULLS NOT DISTINCT" — this
// documents the Open Question 1 resolution from SPEC_FULL.md: the
// permissive NULL-is-distinct interpretation, which lets merges
// transiently share a phone across two primaries between steps. The
// partial WHERE clause resolves Open Question 4: a soft-deleted row's
// (email, phone, linked_id) triple may be reinserted without conflict.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS contacts (
    id BIGSERIAL PRIMARY KEY,
    email TEXT,
    phone TEXT,
    linked_id BIGINT REFERENCES contacts(id),
    precedence TEXT NOT NULL CHECK (precedence IN ('primary', 'secondary')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at TIMESTAMPTZ,
    CHECK (email IS NOT NULL OR phone IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone);
CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts(linked_id);

CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_identity
    ON contacts(email, phone, linked_id)
    WHERE deleted_at IS NULL;
`

// sqliteSchema mirrors postgresSchema for local/dev use; SQLite has
// supported partial indexes since
// 3.8.0, so the same Open Question 4 resolution applies.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT,
    phone TEXT,
    linked_id INTEGER REFERENCES contacts(id),
    precedence TEXT NOT NULL CHECK (precedence IN ('primary', 'secondary')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME,
    CHECK (email IS NOT NULL OR phone IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone);
CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts(linked_id);

CREATE UNIQUE INDEX IF NOT EXISTS uq_contacts_identity
    ON contacts(email, phone, linked_id)
    WHERE deleted_at IS NULL;
`
