package storage

const schema = `
-- The 'documents' table stores one serialized deck per key.
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
