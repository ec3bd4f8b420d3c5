package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rate_buckets (
    effective            TEXT NOT NULL,
    min_days             INTEGER NOT NULL,
    max_days             INTEGER NOT NULL,
    label                TEXT,
    unit                 TEXT,
    rate                 REAL NOT NULL,
    source               TEXT,
    imported_at          TEXT NOT NULL,
    PRIMARY KEY (effective, min_days, max_days)
);

CREATE TABLE IF NOT EXISTS plan_runs (
    run_id               TEXT PRIMARY KEY,
    created_at           TEXT NOT NULL,
    start_date           TEXT NOT NULL,
    end_date             TEXT NOT NULL,
    rates_date           TEXT NOT NULL,
    status               TEXT NOT NULL,
    objective            REAL,
    total_inflow         REAL,
    total_outflow        REAL,
    total_interest       REAL,
    investments          INTEGER,
    largest_deposit      REAL,
    nodes                INTEGER,
    carry_arcs           INTEGER,
    investable_arcs      INTEGER,
    solve_ms             INTEGER
);

CREATE TABLE IF NOT EXISTS plan_positions (
    run_id               TEXT NOT NULL REFERENCES plan_runs(run_id) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    kind                 TEXT NOT NULL,
    from_date            TEXT NOT NULL,
    to_date              TEXT NOT NULL,
    days                 INTEGER NOT NULL,
    amount               REAL NOT NULL,
    interest             REAL NOT NULL,
    factor               REAL NOT NULL,
    from_index           INTEGER NOT NULL,
    to_index             INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_rate_buckets_effective ON rate_buckets(effective);
CREATE INDEX IF NOT EXISTS idx_plan_runs_created ON plan_runs(created_at);
`
