// Package testsupport provides shared helpers for tests: temp-backed
// configs, catalog stores, wired ingestion pipelines, and payloads that
// sniff as real media types.
package testsupport
