package opstore

// schemaSQL is the DDL for the operational store. Unlike the teacher's
// schema this carries no chunk/vector/FTS/graph tables — chunk metadata,
// embeddings, and keyword search live in the file-based vectorindex and
// bm25 indices instead, per the specification's file-based index
// contract. This store tracks only what's needed for incremental ingest
// file-diffing, ingestion-run auditing, and query logging.
const schemaSQL = `
-- File history for incremental ingest change detection.
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    mtime_unix INTEGER NOT NULL,
    status TEXT DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per incremental-ingest run, for operational visibility.
CREATE TABLE IF NOT EXISTS ingestion_runs (
    id INTEGER PRIMARY KEY,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    files_added INTEGER DEFAULT 0,
    files_removed INTEGER DEFAULT 0,
    files_modified INTEGER DEFAULT 0,
    chunks_added INTEGER DEFAULT 0,
    qa_pairs_added INTEGER DEFAULT 0,
    ann_trees INTEGER DEFAULT 0,
    success INTEGER DEFAULT 0,
    error TEXT
);

-- Query audit log.
CREATE TABLE IF NOT EXISTS query_log (
    id INTEGER PRIMARY KEY,
    query TEXT NOT NULL,
    mode TEXT NOT NULL,
    result_count INTEGER DEFAULT 0,
    rag_injected INTEGER DEFAULT 0,
    prompt_tokens INTEGER DEFAULT 0,
    completion_tokens INTEGER DEFAULT 0,
    total_tokens INTEGER DEFAULT 0,
    latency_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log(created_at);
`
