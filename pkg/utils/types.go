package utils

// Content type of gzipped JSONL snapshots
const CONTENT_TYPE_JSONL_GZ = "application/gzip"
